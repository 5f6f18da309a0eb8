package cli

import (
	"errors"
	"fmt"

	"spcrud-cli/internal/splist"
)

// Exit codes returned by ExitCode.
const (
	ExitError        = 1
	ExitUsage        = 2
	ExitNotFound     = 3
	ExitPrecondition = 4
	ExitNetwork      = 5
)

// reportedError is an error writeErr already printed.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

type missingSettingError struct {
	flag string
	key  string
	env  string
}

func (e missingSettingError) Error() string {
	return fmt.Sprintf("missing %s (set it with %s, %s or `spcrud config set %s <value>`)", e.key, e.flag, e.env, e.key)
}

type invalidFlagError struct {
	err error
}

func (e invalidFlagError) Error() string { return e.err.Error() }
func (e invalidFlagError) Unwrap() error { return e.err }

type invalidIDError struct {
	arg string
}

func (e invalidIDError) Error() string {
	return fmt.Sprintf("invalid item id %q (expected a positive integer)", e.arg)
}

type unknownTopicError struct {
	topic string
}

func (e unknownTopicError) Error() string {
	return fmt.Sprintf("unknown docs topic: %q (run `spcrud docs` to list topics)", e.topic)
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		missing  missingSettingError
		invalid  invalidFlagError
		badID    invalidIDError
		notFound splist.NotFoundError
		stale    splist.PreconditionFailedError
		netErr   splist.NetworkError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid), errors.As(err, &badID):
		return ExitUsage
	case errors.As(err, &notFound):
		return ExitNotFound
	case errors.As(err, &stale):
		return ExitPrecondition
	case errors.As(err, &netErr):
		return ExitNetwork
	default:
		return ExitError
	}
}
