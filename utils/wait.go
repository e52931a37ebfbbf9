package utils

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	oscerrors "github.com/joona/osckit/errors"
)

// StatusFunc reports a resource's current status and progress percentage.
type StatusFunc func(ctx context.Context) (status string, progress int, err error)

// WaitOptions tune WaitForStatus and WaitForDelete. Zero values take the
// defaults noted on each field.
type WaitOptions struct {
	SuccessStatus []string      // default ["active"]
	ErrorStatus   []string      // default ["error"]
	Interval      time.Duration // default 5s
	Timeout       time.Duration // WaitForDelete only, default 300s
	// Callback receives the progress once per poll that did not finish.
	Callback func(progress int)
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.SuccessStatus == nil {
		o.SuccessStatus = []string{"active"}
	}
	if o.ErrorStatus == nil {
		o.ErrorStatus = []string{"error"}
	}
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 300 * time.Second
	}
	return o
}

// WaitForStatus polls status until it reaches a success (true) or error
// (false) status. It stops early when ctx is done.
func WaitForStatus(ctx context.Context, status StatusFunc, opts WaitOptions) (bool, error) {
	opts = opts.withDefaults()
	for {
		s, progress, err := status(ctx)
		if err != nil {
			return false, err
		}
		s = strings.ToLower(s)
		switch {
		case slices.Contains(opts.SuccessStatus, s):
			return true, nil
		case slices.Contains(opts.ErrorStatus, s):
			return false, nil
		}
		if opts.Callback != nil {
			opts.Callback(progress)
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return false, err
		}
	}
}

// WaitForDelete polls until status reports not found (true), an error
// status (false) or the timeout passes (false).
func WaitForDelete(ctx context.Context, status StatusFunc, opts WaitOptions) (bool, error) {
	opts = opts.withDefaults()
	var waited time.Duration
	for waited < opts.Timeout {
		s, progress, err := status(ctx)
		if err != nil {
			if errors.Is(err, oscerrors.ErrNotFound) {
				return true, nil
			}
			return false, err
		}
		if slices.Contains(opts.ErrorStatus, strings.ToLower(s)) {
			return false, nil
		}
		if opts.Callback != nil {
			opts.Callback(progress)
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return false, err
		}
		waited += opts.Interval
	}
	return false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
