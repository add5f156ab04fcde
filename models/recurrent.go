package models

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/aouyang1/go-sensorcast/window"
)

// RecurrentOptions configures the recurrent network and its training loop
type RecurrentOptions struct {
	Hidden1         int     `json:"hidden_1" mapstructure:"hidden_1"`
	Hidden2         int     `json:"hidden_2" mapstructure:"hidden_2"`
	Dense           int     `json:"dense" mapstructure:"dense"`
	Epochs          int     `json:"epochs" mapstructure:"epochs"`
	BatchSize       int     `json:"batch_size" mapstructure:"batch_size"`
	LearningRate    float64 `json:"learning_rate" mapstructure:"learning_rate"`
	ClipNorm        float64 `json:"clip_norm" mapstructure:"clip_norm"`
	ValidationSplit float64 `json:"validation_split" mapstructure:"validation_split"`
	Seed            uint64  `json:"seed" mapstructure:"seed"`
}

func NewDefaultRecurrentOptions() *RecurrentOptions {
	return &RecurrentOptions{
		Hidden1:         50,
		Hidden2:         50,
		Dense:           25,
		Epochs:          20,
		BatchSize:       16,
		LearningRate:    1e-3,
		ClipNorm:        1.0,
		ValidationSplit: 0.1,
		Seed:            42,
	}
}

// Validate returns the default options when nil and checks every size is positive
func (o *RecurrentOptions) Validate() (*RecurrentOptions, error) {
	if o == nil {
		return NewDefaultRecurrentOptions(), nil
	}
	if o.Hidden1 < 1 || o.Hidden2 < 1 || o.Dense < 1 {
		return nil, fmt.Errorf("layer sizes %d, %d, %d must be positive, %w", o.Hidden1, o.Hidden2, o.Dense, ErrInvalidOptions)
	}
	if o.Epochs < 1 || o.BatchSize < 1 {
		return nil, fmt.Errorf("epochs %d and batch size %d must be positive, %w", o.Epochs, o.BatchSize, ErrInvalidOptions)
	}
	if !(o.LearningRate > 0) {
		return nil, fmt.Errorf("learning rate %g must be positive, %w", o.LearningRate, ErrInvalidOptions)
	}
	if o.ClipNorm < 0 {
		return nil, fmt.Errorf("clip norm %g must be non-negative, %w", o.ClipNorm, ErrInvalidOptions)
	}
	if o.ValidationSplit < 0 || o.ValidationSplit >= 1 {
		return nil, fmt.Errorf("validation split %g must be in [0, 1), %w", o.ValidationSplit, ErrInvalidOptions)
	}
	return o, nil
}

// History records the mean squared error after every epoch. ValLoss is empty when no
// validation windows are held out.
type History struct {
	Loss    []float64 `json:"loss"`
	ValLoss []float64 `json:"val_loss,omitempty"`
}

// Recurrent is a stacked LSTM regressor predicting the next scaled value from a window of
// scaled values
type Recurrent struct {
	opt     *RecurrentOptions
	net     *network
	history History
	trained bool
}

func NewRecurrent(opt *RecurrentOptions) (*Recurrent, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Recurrent{opt: opt}, nil
}

func (r *Recurrent) Kind() Kind {
	return KindRecurrent
}

func (r *Recurrent) Trained() bool {
	return r.trained
}

func (r *Recurrent) Scaled() bool {
	return true
}

// History returns the per epoch training and validation loss
func (r *Recurrent) History() History {
	return History{
		Loss:    append([]float64(nil), r.history.Loss...),
		ValLoss: append([]float64(nil), r.history.ValLoss...),
	}
}

// Fit trains the network on the scaled windows. The last ValidationSplit fraction of windows is
// held out from gradient updates and only reported in the history.
func (r *Recurrent) Fit(data TrainingData) error {
	if r.trained {
		return ErrAlreadyTrained
	}
	if r.opt == nil {
		return ErrNoOptions
	}
	windows := data.Windows
	if windows.Len() == 0 {
		return ErrNoTrainingWindows
	}

	nVal := int(float64(windows.Len()) * r.opt.ValidationSplit)
	nTrain := windows.Len() - nVal
	if nTrain < 1 {
		return fmt.Errorf("%d windows leave no training windows after validation split, %w", windows.Len(), ErrNoTrainingWindows)
	}
	train, err := windows.Slice(0, nTrain)
	if err != nil {
		return err
	}
	val, err := windows.Slice(nTrain, windows.Len())
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(r.opt.Seed, r.opt.Seed))
	net := newNetwork(r.opt, rng)
	optim := newAdam(r.opt.LearningRate)
	params := net.params()

	order := make([]int, nTrain)
	for i := range order {
		order[i] = i
	}

	var history History
	for epoch := 0; epoch < r.opt.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		for start := 0; start < nTrain; start += r.opt.BatchSize {
			end := min(start+r.opt.BatchSize, nTrain)
			batch := float64(end - start)

			net.zeroGrad()
			for _, idx := range order[start:end] {
				yhat, tr := net.forward(train.X[idx])
				resid := yhat - train.Y[idx]
				epochLoss += resid * resid
				net.backward(tr, 2*resid/batch)
			}
			clipGradNorm(params, r.opt.ClipNorm)
			optim.step(params)
		}
		epochLoss /= float64(nTrain)
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return fmt.Errorf("loss at epoch %d, %w", epoch+1, ErrDiverged)
		}
		history.Loss = append(history.Loss, epochLoss)

		logArgs := []any{"epoch", epoch + 1, "loss", epochLoss}
		if val.Len() > 0 {
			valLoss := networkMSE(net, val)
			history.ValLoss = append(history.ValLoss, valLoss)
			logArgs = append(logArgs, "val_loss", valLoss)
		}
		slog.Debug("trained recurrent epoch", logArgs...)
	}

	r.net = net
	r.history = history
	r.trained = true
	return nil
}

func networkMSE(net *network, set *window.Set) float64 {
	var sse float64
	for i, x := range set.X {
		yhat, _ := net.forward(x)
		resid := yhat - set.Y[i]
		sse += resid * resid
	}
	return sse / float64(set.Len())
}

func (r *Recurrent) Predict(contexts [][]float64) ([]float64, error) {
	return predictAll(r, contexts)
}

// PredictOne returns the next scaled value following the scaled context
func (r *Recurrent) PredictOne(context []float64) (float64, error) {
	if !r.trained {
		return 0, ErrUntrainedModel
	}
	if len(context) == 0 {
		return 0, ErrEmptyContext
	}
	yhat, _ := r.net.forward(context)
	return yhat, nil
}

// LSTMParams are the exported weights of a recurrent layer in row order
type LSTMParams struct {
	In     int       `json:"in"`
	Hidden int       `json:"hidden"`
	Wx     []float64 `json:"wx"`
	Wh     []float64 `json:"wh"`
	B      []float64 `json:"b"`
}

// DenseParams are the exported weights of a dense layer in row order
type DenseParams struct {
	In  int       `json:"in"`
	Out int       `json:"out"`
	W   []float64 `json:"w"`
	B   []float64 `json:"b"`
}

// RecurrentParams fully describe a trained recurrent model
type RecurrentParams struct {
	Options *RecurrentOptions `json:"options"`
	LSTM1   LSTMParams        `json:"lstm_1"`
	LSTM2   LSTMParams        `json:"lstm_2"`
	Hidden  DenseParams       `json:"hidden"`
	Output  DenseParams       `json:"output"`
	History History           `json:"history"`
}

func copyFloats(x []float64) []float64 {
	return append([]float64(nil), x...)
}

// Params exports the trained weights
func (r *Recurrent) Params() (*RecurrentParams, error) {
	if !r.trained {
		return nil, ErrUntrainedModel
	}
	lstm := func(l *lstmLayer) LSTMParams {
		return LSTMParams{
			In:     l.in,
			Hidden: l.hidden,
			Wx:     copyFloats(l.wx.w),
			Wh:     copyFloats(l.wh.w),
			B:      copyFloats(l.b.w),
		}
	}
	dense := func(d *denseLayer) DenseParams {
		return DenseParams{
			In:  d.in,
			Out: d.out,
			W:   copyFloats(d.w.w),
			B:   copyFloats(d.b.w),
		}
	}
	opt := *r.opt
	return &RecurrentParams{
		Options: &opt,
		LSTM1:   lstm(r.net.lstm1),
		LSTM2:   lstm(r.net.lstm2),
		Hidden:  dense(r.net.hidden),
		Output:  dense(r.net.output),
		History: r.History(),
	}, nil
}

// NewRecurrentFromParams rebuilds a trained recurrent model from exported weights
func NewRecurrentFromParams(p *RecurrentParams) (*Recurrent, error) {
	if p == nil {
		return nil, ErrNoOptions
	}
	opt, err := p.Options.Validate()
	if err != nil {
		return nil, err
	}

	lstm := func(name string, lp LSTMParams, in, hidden int) (*lstmLayer, error) {
		if lp.In != in || lp.Hidden != hidden ||
			len(lp.Wx) != 4*hidden*in || len(lp.Wh) != 4*hidden*hidden || len(lp.B) != 4*hidden {
			return nil, fmt.Errorf("%s layer, %w", name, ErrParamShapeMismatch)
		}
		return &lstmLayer{
			in:     in,
			hidden: hidden,
			wx:     newParam(copyFloats(lp.Wx)),
			wh:     newParam(copyFloats(lp.Wh)),
			b:      newParam(copyFloats(lp.B)),
		}, nil
	}
	dense := func(name string, dp DenseParams, in, out int, relu bool) (*denseLayer, error) {
		if dp.In != in || dp.Out != out || len(dp.W) != in*out || len(dp.B) != out {
			return nil, fmt.Errorf("%s layer, %w", name, ErrParamShapeMismatch)
		}
		return &denseLayer{
			in:   in,
			out:  out,
			relu: relu,
			w:    newParam(copyFloats(dp.W)),
			b:    newParam(copyFloats(dp.B)),
		}, nil
	}

	net := &network{}
	if net.lstm1, err = lstm("first recurrent", p.LSTM1, 1, opt.Hidden1); err != nil {
		return nil, err
	}
	if net.lstm2, err = lstm("second recurrent", p.LSTM2, opt.Hidden1, opt.Hidden2); err != nil {
		return nil, err
	}
	if net.hidden, err = dense("hidden", p.Hidden, opt.Hidden2, opt.Dense, true); err != nil {
		return nil, err
	}
	if net.output, err = dense("output", p.Output, opt.Dense, 1, false); err != nil {
		return nil, err
	}

	optCopy := *opt
	return &Recurrent{
		opt: &optCopy,
		net: net,
		history: History{
			Loss:    copyFloats(p.History.Loss),
			ValLoss: copyFloats(p.History.ValLoss),
		},
		trained: true,
	}, nil
}
