package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrUnderdetermined    = errors.New("fewer observations than features")
	ErrSingularDesign     = errors.New("design matrix is singular or ill-conditioned")

	ErrUntrainedModel     = errors.New("model has not been trained yet")
	ErrAlreadyTrained     = errors.New("model has already been trained")
	ErrNoTrainingWindows  = errors.New("no training windows")
	ErrNoTrainingSeries   = errors.New("no training series")
	ErrEmptyContext       = errors.New("empty prediction context")
	ErrContextTooShort    = errors.New("prediction context too short for model order")
	ErrDiverged           = errors.New("training diverged to non-finite values")
	ErrNoConvergingOrder  = errors.New("no autoregressive order converged")
	ErrInsufficientObs    = errors.New("insufficient observations for model order")
	ErrInvalidOptions     = errors.New("invalid model options")
	ErrParamShapeMismatch = errors.New("model parameters do not match declared shape")
)
