package copytrade

import (
	"context"
	"errors"
)

// Dispatch is a running fan-out. Results are indexed like the subscriber list
// passed to Mirror.
type Dispatch struct {
	done    chan struct{}
	results []Result
}

func newDispatch(n int) *Dispatch {
	return &Dispatch{
		done:    make(chan struct{}),
		results: make([]Result, n),
	}
}

func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until every submission has finished or ctx ends. Giving up on
// ctx does not stop the submissions.
func (d *Dispatch) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-d.done:
		return d.Results(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Results returns nil until the dispatch is done.
func (d *Dispatch) Results() []Result {
	select {
	case <-d.done:
		return append([]Result(nil), d.results...)
	default:
		return nil
	}
}

// Err joins the per-account failures once the dispatch is done.
func (d *Dispatch) Err() error {
	var errList []error
	for _, res := range d.Results() {
		if res.Err != nil {
			errList = append(errList, res.Err)
		}
	}
	return errors.Join(errList...)
}
