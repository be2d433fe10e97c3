package defclean

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// pendingProbe is one symbol occurrence waiting for its probe.
type pendingProbe struct {
	ordinal int
	lineNo  int
	symbol  string
}

// analyzeParallel runs the pipeline in three phases:
//
//	Phase A (serial):   read the whole defconfig and extract every occurrence.
//	Phase B (parallel): probe occurrences with at most e.jobs in flight.
//	Phase C (serial):   emit results strictly in defconfig order as the
//	                    completed prefix grows.
func (e *Engine) analyzeParallel(ctx context.Context, dc *Defconfig, root string, report *Report) error {
	// ---- Phase A ----
	var pending []pendingProbe
	for {
		line, ok := dc.Next()
		if !ok {
			break
		}
		for _, m := range ExtractSymbols(line) {
			pending = append(pending, pendingProbe{
				ordinal: len(pending),
				lineNo:  dc.LineNo(),
				symbol:  m.Name,
			})
		}
	}
	if err := dc.Err(); err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	// ---- Phases B and C ----
	out := newOrderedEmitter(len(pending), func(res UsageResult) error {
		report.add(res)
		return e.emit(res)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for _, p := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.Probe(gctx, root, p.ordinal, p.lineNo, p.symbol)
			return out.complete(res)
		})
	}
	return g.Wait()
}

// orderedEmitter releases results in ordinal order regardless of the order
// in which probes finish.
type orderedEmitter struct {
	mu      sync.Mutex
	next    int
	done    []bool
	results []UsageResult
	emit    func(UsageResult) error
	err     error
}

func newOrderedEmitter(n int, emit func(UsageResult) error) *orderedEmitter {
	return &orderedEmitter{
		done:    make([]bool, n),
		results: make([]UsageResult, n),
		emit:    emit,
	}
}

// complete records res and emits the completed prefix. After the first emit
// failure nothing else is emitted and every call returns that error.
func (o *orderedEmitter) complete(res UsageResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	o.results[res.Ordinal] = res
	o.done[res.Ordinal] = true
	for o.next < len(o.done) && o.done[o.next] {
		cur := o.results[o.next]
		o.next++
		if err := o.emit(cur); err != nil {
			o.err = err
			return err
		}
	}
	return nil
}
