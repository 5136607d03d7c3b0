package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a pipeline stage failed.
type FailureKind string

const (
	KindConfig    FailureKind = "config"
	KindTransient FailureKind = "transient"
	KindData      FailureKind = "data"
	KindDuplicate FailureKind = "duplicate"
)

// Pipeline stage names used in StageError and metrics labels.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageRewrite   = "rewrite"
	StageImage     = "image"
	StageTaxonomy  = "taxonomy"
	StageMedia     = "media"
	StagePublish   = "publish"
	StageRecord    = "record"
	StageNotify    = "notify"
	StagePreflight = "preflight"
)

// StageError is the typed failure returned by every pipeline stage.
type StageError struct {
	Stage string
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a StageError.
func Fail(stage string, kind FailureKind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf reports the failure kind carried by err. Untyped errors are transient.
func KindOf(err error) FailureKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// StageOf reports the stage carried by err, or "" when untyped.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
