package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/dedup"
	"github.com/ehdc-llpg/deduplicator/internal/importer"
	"github.com/ehdc-llpg/deduplicator/internal/logging"
	"github.com/ehdc-llpg/deduplicator/internal/sources"
)

func createRunCmd() *cobra.Command {
	var (
		sourceFlags  []string
		outputDB     string
		outputCSV    string
		cachePages   int
		threads      int
		refreshDelay time.Duration
		skipFilters  bool
		keep         bool
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full deduplication pass over one or more sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(debug)
			if err != nil {
				return fmt.Errorf("run: logger: %w", err)
			}
			defer log.Sync()

			if threads <= 0 {
				threads = runtime.NumCPU()
			}

			if !keep {
				if err := os.Remove(outputDB); err != nil && !os.IsNotExist(err) {
					log.Warn("failed to remove existing output database", zap.Error(err))
				} else if err == nil {
					log.Info("removed existing output database", zap.String("path", outputDB))
				}
			}

			jobs, err := parseSourceFlags(sourceFlags)
			if err != nil {
				return err
			}

			d, err := dedup.New(outputDB, cachePages, dedup.Config{
				RefreshDelay: refreshDelay,
				NbThreads:    threads,
				Keep:         keep,
			}, log)
			if err != nil {
				return fmt.Errorf("run: open output database: %w", err)
			}
			defer d.Close()

			for _, job := range jobs {
				log.Info("loading source", zap.String("source", job.source.String()), zap.String("path", job.path))

				filter := sources.Filter(job.source, nil)
				if skipFilters {
					filter = func(address.Address) bool { return true }
				}
				rank := sources.Rank(job.source)

				ins, err := d.Inserter(filter, rank)
				if err != nil {
					return fmt.Errorf("run: inserter for %s: %w", job.path, err)
				}

				count, err := importer.LoadFromSQLite(job.path, ins.Insert)
				if err != nil {
					return fmt.Errorf("run: load %s: %w", job.path, err)
				}
				if err := ins.Close(); err != nil {
					return fmt.Errorf("run: flush %s: %w", job.path, err)
				}
				log.Info("loaded source", zap.String("path", job.path), zap.Int("addresses", count))
			}

			log.Info("computing duplicates")
			if err := d.ComputeDuplicates(); err != nil {
				return fmt.Errorf("run: compute duplicates: %w", err)
			}

			log.Info("applying deletions")
			if err := d.ApplyDeletions(); err != nil {
				return fmt.Errorf("run: apply deletions: %w", err)
			}

			log.Info("writing CSV", zap.String("path", outputCSV))
			out, err := os.Create(outputCSV)
			if err != nil {
				return fmt.Errorf("run: create %s: %w", outputCSV, err)
			}
			defer out.Close()
			if err := d.DumpAddresses(out); err != nil {
				return fmt.Errorf("run: dump csv: %w", err)
			}

			if !keep {
				if err := os.Remove(outputDB); err != nil {
					log.Warn("failed to remove output database", zap.Error(err))
				} else {
					log.Info("removed output database", zap.String("path", outputDB))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sourceFlags, "source", nil, "source to ingest as name=path, repeatable (name is national, community, or crowdsourced)")
	cmd.Flags().StringVar(&outputDB, "output-db", "addresses.db", "path for the working SQLite database")
	cmd.Flags().StringVar(&outputCSV, "output-csv", "deduplicated.csv", "path for the deduplicated CSV output")
	cmd.Flags().IntVar(&cachePages, "cache-pages", 10_000, "number of SQLite pages to cache (one page is 4096 bytes)")
	cmd.Flags().IntVar(&threads, "threads", 0, "number of threads to target (0 = number of CPUs)")
	cmd.Flags().DurationVar(&refreshDelay, "refresh-delay", time.Second, "progress redraw delay")
	cmd.Flags().BoolVar(&skipFilters, "skip-source-filters", false, "ingest every address regardless of its source's region filter")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the working database instead of removing it at start and end")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

type sourceJob struct {
	source sources.Source
	path   string
}

func parseSourceFlags(flags []string) ([]sourceJob, error) {
	jobs := make([]sourceJob, 0, len(flags))
	for _, raw := range flags {
		name, path, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --source value %q, expected name=path", raw)
		}
		src, err := sources.Parse(name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, sourceJob{source: src, path: path})
	}
	return jobs, nil
}
