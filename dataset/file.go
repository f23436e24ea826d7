// Package dataset loads and prepares nn.DataPoint collections.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sigmanet/nn"

	"github.com/pkg/errors"
)

// Target values used for one-hot encoded labels.
const (
	Low  = 0.01
	High = 0.99
)

// InvalidLineError reports a CSV row with the wrong number of fields.
type InvalidLineError struct {
	Line     int
	Fields   int
	Expected int
}

func (e InvalidLineError) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.Line, e.Expected, e.Fields)
}

// ReadCSV reads rows of inputWidth inputs followed by outputWidth expected
// outputs.
func ReadCSV(r io.Reader, inputWidth, outputWidth int) ([]nn.DataPoint, error) {
	var points []nn.DataPoint
	err := eachRecord(r, inputWidth+outputWidth, func(line int, record []string) error {
		values, err := parseFloats(record)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		points = append(points, nn.DataPoint{
			Inputs:          values[:inputWidth:inputWidth],
			ExpectedOutputs: values[inputWidth:],
		})
		return nil
	})
	return points, err
}

// ReadLabeledCSV reads rows of a class label followed by inputWidth inputs.
// The label is one-hot encoded over classes outputs, High for the label and
// Low elsewhere.
func ReadLabeledCSV(r io.Reader, inputWidth, classes int) ([]nn.DataPoint, error) {
	var points []nn.DataPoint
	err := eachRecord(r, inputWidth+1, func(line int, record []string) error {
		label, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return errors.Wrapf(err, "line %d: parsing label", line)
		}
		if label < 0 || label >= classes {
			return errors.Errorf("line %d: label %d out of range [0, %d)", line, label, classes)
		}
		inputs, err := parseFloats(record[1:])
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		points = append(points, nn.DataPoint{
			Inputs:          inputs,
			ExpectedOutputs: OneHot(label, classes),
		})
		return nil
	})
	return points, err
}

// ReadFile opens path and reads it with ReadLabeledCSV when labeled is set,
// ReadCSV otherwise.
func ReadFile(path string, inputWidth, outputWidth int, labeled bool) ([]nn.DataPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening data file")
	}
	defer f.Close()

	if labeled {
		return ReadLabeledCSV(f, inputWidth, outputWidth)
	}
	return ReadCSV(f, inputWidth, outputWidth)
}

// OneHot returns a classes-long target vector for label.
func OneHot(label, classes int) []float64 {
	targets := make([]float64, classes)
	for i := range targets {
		targets[i] = Low
	}
	targets[label] = High
	return targets
}

func eachRecord(r io.Reader, fields int, fn func(line int, record []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading csv")
		}
		line, _ := cr.FieldPos(0)
		if len(record) != fields {
			return InvalidLineError{Line: line, Fields: len(record), Expected: fields}
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func parseFloats(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing field %d", i)
		}
		values[i] = v
	}
	return values, nil
}
