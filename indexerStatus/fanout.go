package indexerstatus

import (
	"context"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Workers bounds concurrent status requests.
	Workers int
	// Timeout applies to each endpoint.
	Timeout time.Duration
	// Deadline bounds Collect. Indexers still pending then are reported
	// as timed out.
	Deadline time.Duration
}

func DefaultOptions() Options {
	return Options{Workers: 15, Timeout: 10 * time.Second, Deadline: 5 * time.Second}
}

type result struct {
	indexer string
	status  *Status
	err     error
}

// Pending is a status fan-out in flight.
type Pending struct {
	indexers []string
	results  chan result
	deadline time.Duration
	cancel   context.CancelFunc
	log      *logrus.Entry
}

// Start queries every indexer's /status endpoint in the background and
// returns immediately. urls maps indexer id to service URL.
func Start(ctx context.Context, urls map[string]string, deploymentHash string, opts Options) *Pending {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaults.Deadline
	}

	ctx, cancel := context.WithCancel(ctx)
	client := NewClient(opts.Timeout)
	p := &Pending{
		results:  make(chan result, len(urls)),
		deadline: opts.Deadline,
		cancel:   cancel,
		log:      client.Log,
	}
	for indexer, url := range urls {
		if url != "" {
			p.indexers = append(p.indexers, indexer)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(opts.Workers)
	go func() {
		for _, indexer := range p.indexers {
			indexer := indexer
			url := urls[indexer]
			g.Go(func() error {
				wctx, wcancel := context.WithTimeout(ctx, opts.Timeout)
				defer wcancel()

				statuses, err := client.DeploymentStatuses(wctx, url)
				if err != nil {
					p.results <- result{indexer: indexer, err: goerrors.Wrap(err, 0)}
					return nil
				}
				r := result{indexer: indexer}
				if s, ok := statuses[deploymentHash]; ok {
					r.status = &s
				}
				p.results <- r
				return nil
			})
		}
		_ = g.Wait()
		close(p.results)
	}()
	return p
}

// Collect gathers whatever finished before the deadline. Endpoints that
// answered without the deployment appear in neither map.
func (p *Pending) Collect() (map[string]Status, map[string]string) {
	defer p.cancel()

	statuses := make(map[string]Status)
	errs := make(map[string]string)
	done := make(map[string]bool, len(p.indexers))

	timer := time.NewTimer(p.deadline)
	defer timer.Stop()

	for {
		select {
		case r, ok := <-p.results:
			if !ok {
				return statuses, errs
			}
			done[r.indexer] = true
			switch {
			case r.err != nil:
				if e, ok := r.err.(*goerrors.Error); ok {
					p.log.WithField("indexer", r.indexer).Debug(e.ErrorStack())
				}
				errs[r.indexer] = ShortError(r.err.Error())
			case r.status != nil:
				statuses[r.indexer] = *r.status
			}
		case <-timer.C:
			for _, indexer := range p.indexers {
				if !done[indexer] {
					errs[indexer] = "timeout"
				}
			}
			p.log.Debugf("sync status deadline: %d statuses, %d errors", len(statuses), len(errs))
			return statuses, errs
		}
	}
}

// FetchAll is Start followed by Collect.
func FetchAll(ctx context.Context, urls map[string]string, deploymentHash string, opts Options) (map[string]Status, map[string]string) {
	return Start(ctx, urls, deploymentHash, opts).Collect()
}
