package service

import (
	"errors"
	"fmt"
)

// 业务错误分类，handler 通过 errors.Is 映射为错误码
var (
	ErrMissingInput          = errors.New("missing input")
	ErrSessionNotFound       = errors.New("user session not found")
	ErrGenerationFailure     = errors.New("generation failure")
	ErrSynthesisFailure      = errors.New("synthesis failure")
	ErrTranscriptionFailure  = errors.New("transcription failure")
	ErrStorageFailure        = errors.New("storage failure")
	ErrConversationBusy      = errors.New("conversation busy")
	ErrTranscriptionDisabled = errors.New("transcription not configured")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
