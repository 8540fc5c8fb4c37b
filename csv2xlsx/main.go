// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command csv2xlsx converts CSV files and SQL query results to xlsx,
// either once to a file or on the fly over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/UNO-SOFT/xlsxstream/httpexport"
	"github.com/UNO-SOFT/xlsxstream/sqlsource"
	"github.com/UNO-SOFT/xlsxstream/xlsx"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const batchSize = 1000

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var numbers bool
	var encName string
	common := func(fs *flag.FlagSet) {
		fs.Var(&verbose, "v", "logging verbosity")
		fs.StringVar(&encName, "charset", xlsxstream.EncName, "csv charset name")
		fs.BoolVar(&numbers, "numbers", false, "write numeric-looking fields as numbers")
	}

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	common(fs)
	flagOut := fs.String("o", "", "output file name (default input file + .xlsx)")
	flagSheet := fs.String("sheet", "", "sheet name")
	convertCmd := ffcli.Command{Name: "convert", FlagSet: fs,
		ShortUsage: "convert [flags] in.csv",
		Exec: func(ctx context.Context, args []string) error {
			var inp string
			if len(args) != 0 {
				inp = args[0]
			}
			out := *flagOut
			if out == "" {
				if inp == "" || inp == "-" {
					out = "-"
				} else {
					out = strings.TrimSuffix(inp, filepath.Ext(inp)) + xlsx.Extension
				}
			}
			return convert(ctx, out, inp, encName, *flagSheet, numbers)
		},
	}

	fs = flag.NewFlagSet("serve", flag.ContinueOnError)
	common(fs)
	flagAddr := fs.String("addr", "127.0.0.1:8080", "address to listen on")
	flagDir := fs.String("dir", ".", "directory of the .csv and .sql files")
	flagDSN := fs.String("dsn", "", "PostgreSQL connection string for /sql")
	serveCmd := ffcli.Command{Name: "serve", FlagSet: fs,
		ShortUsage: "serve [flags]",
		Options:    []ff.Option{ff.WithEnvVarPrefix("XLSXSTREAM")},
		Exec: func(ctx context.Context, args []string) error {
			var db *sqlx.DB
			if *flagDSN != "" {
				var err error
				if db, err = sqlx.ConnectContext(ctx, "postgres", *flagDSN); err != nil {
					return fmt.Errorf("connect: %w", err)
				}
				defer db.Close()
			}
			srv := &http.Server{
				Addr:              *flagAddr,
				Handler:           newRouter(*flagDir, encName, numbers, db),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutCtx)
			}()
			logger.Info("listening", "addr", srv.Addr, "dir", *flagDir, "sql", db != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	fs = flag.NewFlagSet("csv2xlsx", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	app := ffcli.Command{Name: "csv2xlsx", FlagSet: fs,
		Options:     []ff.Option{ff.WithEnvVarPrefix("XLSXSTREAM")},
		Subcommands: []*ffcli.Command{&convertCmd, &serveCmd},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
	if err := app.Parse(os.Args[1:]); err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}

func convert(ctx context.Context, out, inp, encName, sheetName string, numbers bool) error {
	cr, err := xlsxstream.OpenCsv(inp, encName)
	if err != nil {
		return err
	}
	defer cr.Close()
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header of %q: %w", inp, err)
	}

	fh := os.Stdout
	if !(out == "" || out == "-") {
		if fh, err = os.Create(out); err != nil {
			return err
		}
		defer fh.Close()
	}
	opts := []xlsx.Option{xlsx.WithHeader(header...), xlsx.WithLogger(logger)}
	if sheetName != "" {
		opts = append(opts, xlsx.WithSheetName(sheetName))
	}
	start := time.Now()
	if err := xlsx.Render(ctx, fh, xlsxstream.NewCsvSource(cr.Reader, batchSize, numbers), opts...); err != nil {
		return fmt.Errorf("%q: %w", inp, err)
	}
	logger.Info("converted", "from", inp, "to", out, "dur", time.Since(start).String())
	if fh == os.Stdout {
		return nil
	}
	return fh.Close()
}

func newRouter(dir, encName string, numbers bool, db *sqlx.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/csv/{name}.xlsx", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		httpexport.Handler{Name: name, Logger: logger,
			Options: []xlsx.Option{xlsx.WithSheetName(name)},
			Source: func(r *http.Request) (xlsxstream.RowSource, error) {
				fn, err := lookup(dir, name, ".csv")
				if err != nil {
					return nil, err
				}
				cr, err := xlsxstream.OpenCsv(fn, encName)
				if err != nil {
					return nil, err
				}
				header, err := cr.Read()
				if err != nil {
					cr.Close()
					return nil, err
				}
				cols := make([]xlsxstream.Column, len(header))
				for i, h := range header {
					cols[i].Name = h
				}
				return labeledSource{
					RowSource: xlsxstream.NewCsvSource(cr.Reader, batchSize, numbers),
					closer:    cr, columns: cols,
				}, nil
			},
		}.ServeHTTP(w, r)
	})

	r.Get("/sql/{name}.xlsx", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			http.Error(w, "no database configured", http.StatusNotFound)
			return
		}
		name := chi.URLParam(r, "name")
		httpexport.Handler{Name: name, Logger: logger,
			Options: []xlsx.Option{xlsx.WithSheetName(name)},
			Source: func(r *http.Request) (xlsxstream.RowSource, error) {
				fn, err := lookup(dir, name, ".sql")
				if err != nil {
					return nil, err
				}
				qry, err := os.ReadFile(fn)
				if err != nil {
					return nil, err
				}
				src := sqlsource.New(db, string(qry)).WithPageSize(batchSize)
				cols, err := src.Columns(r.Context())
				if err != nil {
					return nil, err
				}
				return labeledSource{RowSource: src, columns: cols}, nil
			},
		}.ServeHTTP(w, r)
	})
	return r
}

// labeledSource is a RowSource that knows its columns.
type labeledSource struct {
	xlsxstream.RowSource
	closer  io.Closer
	columns []xlsxstream.Column
}

func (s labeledSource) Columns() []xlsxstream.Column { return s.columns }
func (s labeledSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// lookup returns the path of name+ext in dir;
// a missing file is reported as xlsxstream.ErrEmptySource, so it becomes a 404.
func lookup(dir, name, ext string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%q: %w", name, xlsxstream.ErrEmptySource)
	}
	fn := filepath.Join(dir, name+ext)
	if _, err := os.Stat(fn); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%q: %w", fn, xlsxstream.ErrEmptySource)
		}
		return "", err
	}
	return fn, nil
}
