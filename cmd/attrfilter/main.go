package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"attrfilter/backend"
	"attrfilter/domain"
	"attrfilter/handler"
	"attrfilter/internal/config"
)

func main() {
	var (
		configPath  string
		writeConfig string
		search      string
		selectKeys  string
		order       string
		invert      bool
		timeout     time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default: user config dir)")
	flag.StringVar(&writeConfig, "write-config", "", "Write the effective config to this path and exit")
	flag.StringVar(&search, "search", "", "Search string applied to the element list")
	flag.StringVar(&selectKeys, "select", "", "Comma separated element keys to select and commit")
	flag.StringVar(&order, "order", "", "Sort elements by title: asc or desc")
	flag.BoolVar(&invert, "invert", false, "Invert the selection before committing")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for loading")
	flag.Parse()

	configSvc := config.NewConfigService()
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = configSvc.LoadFromPath(configPath)
	} else {
		cfg, err = configSvc.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if writeConfig != "" {
		if err := configSvc.SaveToPath(cfg, writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", writeConfig)
		return
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := run(ctx, cfg, logger, query{
		search: search,
		order:  domain.SortDirection(order),
		keys:   splitKeys(selectKeys),
		invert: invert,
	})
	if err != nil {
		logger.Error("attrfilter failed", "error", err)
		os.Exit(1)
	}
	fmt.Print(out)
}

// newLogger builds the text logger at the configured level
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// query is what the user asked the CLI to do after init
type query struct {
	search string
	order  domain.SortDirection
	keys   []string
	invert bool
}

// run loads the configured dataset through a multi select handler and renders the result
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, q query) (string, error) {
	ds := cfg.Dataset
	mem := backend.NewMemory()
	mem.AddAttribute(ds.Attribute(), ds.Elements)

	var limiter *rate.Limiter
	if cfg.Backend.QueriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Backend.QueriesPerSecond), max(cfg.Backend.Burst, 1))
	}

	hcfg := handler.Config{
		Backend:        backend.Dedup(backend.RateLimited(mem, limiter)),
		Workspace:      cfg.Backend.Workspace,
		Filter:         ds.Filter(),
		HiddenElements: ds.Hidden,
		Limit:          cfg.Limit,
		Logger:         logger,
	}
	if ds.Static {
		hcfg.StaticElements = ds.Elements
	}

	h, err := handler.NewMultiSelect(hcfg)
	if err != nil {
		return "", err
	}
	defer h.Close()

	if err := await(ctx, h, func() error { return h.Init("") }); err != nil {
		return "", fmt.Errorf("init: %w", err)
	}

	if q.search != "" || q.order != domain.SortDefault {
		if err := h.SetSearch(q.search); err != nil {
			return "", err
		}
		if err := h.SetOrder(q.order); err != nil {
			return "", err
		}
		if err := awaitPage(ctx, h); err != nil {
			return "", fmt.Errorf("reload: %w", err)
		}
	}

	if len(q.keys) > 0 || q.invert {
		sel := h.GetWorkingSelection()
		if len(q.keys) > 0 {
			sel = domain.Selection{Items: q.keys}
		}
		if err := h.ChangeSelection(sel); err != nil {
			return "", err
		}
		if q.invert {
			if err := h.InvertSelection(); err != nil {
				return "", err
			}
		}
		if err := h.CommitSelection(); err != nil {
			return "", err
		}
	}

	attribute := ds.Title
	if attr := h.GetAttribute(); attr != nil {
		attribute = attr.Title
	}
	return newStyles().render(report{
		Attribute:  attribute,
		Search:     h.GetSearch(),
		Items:      h.GetAllItems(),
		Mode:       ds.Filter().Elements.Mode(),
		Selection:  h.GetCommittedSelection(),
		Total:      h.GetTotalCount(),
		WithSearch: h.GetCountWithCurrentSettings(),
		Filter:     h.GetFilter(),
	})
}

// await starts init and waits for its terminal event
func await(ctx context.Context, h *handler.MultiSelect, start func() error) error {
	done := make(chan error, 1)
	unsubscribe := []func(){
		h.OnInitSuccess(func(domain.InitSucceededEvent) { done <- nil }),
		h.OnInitError(func(e domain.InitFailedEvent) { done <- e.Err }),
		h.OnInitCancel(func(domain.InitCanceledEvent) { done <- errors.New("canceled") }),
	}
	defer func() {
		for _, u := range unsubscribe {
			u()
		}
	}()

	if err := start(); err != nil {
		return err
	}
	return wait(ctx, done)
}

// awaitPage reloads the first page with the current settings and waits for it
func awaitPage(ctx context.Context, h *handler.MultiSelect) error {
	const correlation domain.Correlation = "cli-reload"
	done := make(chan error, 1)
	unsubscribe := []func(){
		h.OnLoadElementsSuccess(func(e domain.ElementsLoadSucceededEvent) {
			if e.Correlation == correlation {
				done <- nil
			}
		}),
		h.OnLoadElementsError(func(e domain.ElementsLoadFailedEvent) {
			if e.Correlation == correlation {
				done <- e.Err
			}
		}),
	}
	defer func() {
		for _, u := range unsubscribe {
			u()
		}
	}()

	if err := h.LoadInitialElementsPage(correlation); err != nil {
		return err
	}
	return wait(ctx, done)
}

func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
