package forecaster

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-sensorcast/floatsunrolled"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoReport = errors.New("no training report to plot")

// echarts renders this value as a gap in a line
const missingValue = "-"

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) {
			data = append(data, opts.LineData{Value: missingValue})
			continue
		}
		data = append(data, opts.LineData{Value: v})
	}
	return data
}

func nanPad(n int) []float64 {
	pad := make([]float64, n)
	for i := range pad {
		pad[i] = math.NaN()
	}
	return pad
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// rendered as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// LineForecaster generates an echart line chart of the observed values along with the one step
// train and test predictions and the iterative future forecast.
func LineForecaster(report *Report, future *Future) *charts.Line {
	nTrain, nTest := report.Train.Len(), report.Test.Len()
	var nFuture int
	if future != nil {
		nFuture = len(future.Timestamps)
	}
	n := nTrain + nTest + nFuture

	t := make([]time.Time, 0, n)
	t = append(t, report.Train.Timestamps...)
	t = append(t, report.Test.Timestamps...)

	actual := make([]float64, 0, n)
	actual = append(actual, report.Train.Actual...)
	actual = append(actual, report.Test.Actual...)
	actual = append(actual, nanPad(nFuture)...)

	trainPred := make([]float64, 0, n)
	trainPred = append(trainPred, report.Train.Predicted...)
	trainPred = append(trainPred, nanPad(nTest+nFuture)...)

	testPred := make([]float64, 0, n)
	testPred = append(testPred, nanPad(nTrain)...)
	testPred = append(testPred, report.Test.Predicted...)
	testPred = append(testPred, nanPad(nFuture)...)

	names := []string{"Actual", "Train Predicted", "Test Predicted"}
	series := [][]float64{actual, trainPred, testPred}
	if future != nil {
		t = append(t, future.Timestamps...)
		futurePred := make([]float64, 0, n)
		futurePred = append(futurePred, nanPad(nTrain+nTest)...)
		futurePred = append(futurePred, future.Predicted...)
		names = append(names, "Future")
		series = append(series, futurePred)
	}
	return LineTSeries("Forecast Fit", names, t, series)
}

// PlotFit uses the Apache Echarts library to render an html page showing the actual series
// against the train, test and future predictions along with the test residual
func (f *Forecaster) PlotFit(w io.Writer, future *Future) error {
	report := f.Report()
	if report == nil {
		return ErrNoReport
	}

	residual := floatsunrolled.SubTo(nil, report.Test.Actual, report.Test.Predicted)

	page := components.NewPage()
	page.AddCharts(
		LineForecaster(report, future),
		LineTSeries(
			"Test Residual",
			[]string{"Residual"},
			report.Test.Timestamps,
			[][]float64{residual},
		),
	)
	return page.Render(w)
}
