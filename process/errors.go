package process

import (
	"fmt"
	"strings"
)

// AssetError is a failure to fetch one asset kind for one game. It never
// aborts the owning game, let alone the run.
type AssetError struct {
	Kind  string
	Url   string
	Cause error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("failed to download %v asset from [%v] - %v", e.Kind, e.Url, e.Cause)
}

func (e *AssetError) Unwrap() error { return e.Cause }

// Per game outcome of the parallel window
type GameStatus string

const (
	GameStatusSuccess GameStatus = "success"
	GameStatusPartial GameStatus = "partial"
	GameStatusFailed  GameStatus = "failed"
)

type GameFailure struct {
	Id     string
	Title  string
	Status GameStatus
	Reason string
}

func joinReasons(errs []*AssetError) string {
	reasons := make([]string, 0, len(errs))
	for _, err := range errs {
		reasons = append(reasons, err.Error())
	}
	return strings.Join(reasons, "; ")
}
