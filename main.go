package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/backend"
	"github.com/HxprLee/manpaper/pkg/catalog"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util/log"
)

const usage = `Usage: manpaper <command> [flags]

Commands:
  scan                      Scan the wallpaper directory and list the library
  search <query>            Search Wallhaven
  download <id>             Download a wallpaper by its Wallhaven ID
  apply <id>                Set a wallpaper as the current background
  delete <id>               Delete a wallpaper's local file
  recode <id>               Re-encode a video wallpaper to the display resolution
  fetch-video <url>         Download a video wallpaper with yt-dlp
  watch                     Print wallpaper status events as they happen
  set-key <api-key>         Store the Wallhaven API key (empty key removes it)
  backends                  List installed wallpaper backends
  version                   Print the version
`

// app bundles the wired engine for the command handlers.
type app struct {
	cfg        *config.Config
	store      *wallpaper.ItemStore
	hub        *wallpaper.Hub
	library    *wallpaper.Library
	invoker    *backend.Invoker
	transcoder *backend.Transcoder
	client     *catalog.Client
	downloader *catalog.Downloader
	videos     *catalog.VideoFetcher
	controller *wallpaper.Controller
	registry   *wallpaper.Registry
	assumeYes  bool
}

func newApp(assumeYes bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := wallpaper.OpenStore(cfg.StateFile)
	if err != nil {
		return nil, err
	}

	hub := wallpaper.NewHub()
	invoker := backend.NewInvoker(cfg, nil)
	transcoder := backend.NewTranscoder(nil)
	library := wallpaper.NewLibrary(cfg.WallpaperDir, cfg.ThumbnailDir, store, hub, transcoder)
	downloader := catalog.NewDownloader(cfg, store, hub)
	videos := catalog.NewVideoFetcher(cfg, store, hub)

	a := &app{
		cfg:        cfg,
		store:      store,
		hub:        hub,
		library:    library,
		invoker:    invoker,
		transcoder: transcoder,
		client:     catalog.NewClient(cfg),
		downloader: downloader,
		videos:     videos,
		assumeYes:  assumeYes,
	}
	a.controller = wallpaper.NewController(store, hub, invoker, downloader)

	a.registry = wallpaper.NewRegistry()
	for _, binding := range []struct {
		action  wallpaper.Action
		handler wallpaper.Handler
	}{
		{wallpaper.ActionApply, a.controller.Apply},
		{wallpaper.ActionDelete, func(ctx context.Context, id string) error {
			name := id
			if it, ok := a.store.Get(id); ok && it.Name != "" {
				name = it.Name
			}
			confirmed := a.confirm(fmt.Sprintf("delete wallpaper %s?", name))
			return a.controller.Delete(ctx, id, confirmed)
		}},
		{wallpaper.ActionDownload, func(ctx context.Context, id string) error {
			_, err := a.downloader.Download(ctx, id)
			return err
		}},
		{wallpaper.ActionCancelDownload, func(_ context.Context, id string) error {
			a.downloader.CancelAndWait(id)
			return nil
		}},
		{wallpaper.ActionThumbnail, func(ctx context.Context, id string) error {
			_, err := a.library.EnsureThumbnail(ctx, id)
			return err
		}},
	} {
		if err := a.registry.Register(binding.action, binding.handler); err != nil {
			store.Close()
			return nil, err
		}
	}
	if err := a.registry.Verify(); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	a.hub.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("closing store: %v", err)
	}
}

// confirm asks on the terminal before destructive actions.
func (a *app) confirm(prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	assumeYes := flag.Bool("yes", false, "answer yes to confirmation prompts")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, cmdArgs := args[0], args[1:]

	if cmd == "version" {
		version := config.AppVersion
		if version == "" {
			version = "dev"
		}
		fmt.Printf("%s %s\n", config.AppName, version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(*assumeYes)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer a.close()

	if err := a.dispatch(ctx, cmd, cmdArgs); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "scan":
		return a.cmdScan(ctx)
	case "search":
		return a.cmdSearch(ctx, args)
	case "download":
		return a.cmdItemAction(ctx, wallpaper.ActionDownload, args)
	case "apply":
		return a.cmdItemAction(ctx, wallpaper.ActionApply, args)
	case "delete":
		return a.cmdItemAction(ctx, wallpaper.ActionDelete, args)
	case "recode":
		return a.cmdRecode(ctx, args)
	case "fetch-video":
		return a.cmdFetchVideo(ctx, args)
	case "watch":
		return a.cmdWatch(ctx)
	case "set-key":
		return a.cmdSetKey(args)
	case "backends":
		return a.cmdBackends()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdScan(ctx context.Context) error {
	items, err := a.library.Scan(ctx)
	if err != nil {
		return err
	}
	if err := a.library.WarmThumbnails(ctx, a.cfg.Downloads.Parallel); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tRESOLUTION\tAPPLIED\tPATH")
	for _, it := range items {
		applied := ""
		if it.Applied {
			applied = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Kind, it.Resolution(), applied, it.LocalPath)
	}
	return w.Flush()
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	sketchy := fs.Bool("sketchy", false, "include sketchy results")
	nsfw := fs.Bool("nsfw", false, "include NSFW results")
	anime := fs.Bool("anime", true, "include the anime category")
	people := fs.Bool("people", true, "include the people category")
	atleast := fs.String("atleast", "", "minimum resolution, e.g. 1920x1080")
	ratios := fs.String("ratios", "", "aspect ratios, e.g. 16x9")
	page := fs.Int("page", 1, "result page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := catalog.SearchFilters{
		Query:   strings.Join(fs.Args(), " "),
		SFW:     true,
		Sketchy: *sketchy,
		NSFW:    *nsfw,
		General: true,
		Anime:   *anime,
		People:  *people,
		AtLeast: *atleast,
		Ratios:  *ratios,
		Page:    *page,
	}
	if filters.AtLeast == "" {
		w, h := a.invoker.Resolution(ctx)
		filters.AtLeast = fmt.Sprintf("%dx%d", w, h)
	}

	items, meta, err := a.client.Search(ctx, filters)
	if err != nil {
		return err
	}

	// Remember results so download/apply can refer to them by ID.
	for i := range items {
		if _, err := a.store.Add(&items[i]); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRESOLUTION\tPURITY\tCATEGORY\tURL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Resolution(), it.Purity, it.Category, it.PageURL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("page %d of %d (%d results total)\n", meta.CurrentPage, meta.LastPage, meta.Total)
	return nil
}

func (a *app) cmdItemAction(ctx context.Context, action wallpaper.Action, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one wallpaper ID")
	}
	return a.registry.Dispatch(ctx, action, args[0])
}

func (a *app) cmdRecode(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one wallpaper ID")
	}
	it, ok := a.store.Get(args[0])
	if !ok || !it.Downloaded {
		return wallpaper.ErrNotDownloaded
	}
	if !it.IsVideo() {
		return fmt.Errorf("%s is not a video", it.ID)
	}

	width, height := a.invoker.Resolution(ctx)

	srcW, srcH, err := a.transcoder.Dimensions(ctx, it.LocalPath)
	if err != nil {
		return err
	}
	if srcW <= width && srcH <= height {
		fmt.Printf("%s already fits the display (%dx%d), nothing to do\n", it.ID, srcW, srcH)
		return nil
	}

	out, err := a.transcoder.Recode(ctx, it.LocalPath, width, height)
	if err != nil {
		return err
	}
	fmt.Printf("recoded to %s\n", out)

	// Register the recoded copy as its own library item.
	_, err = a.library.Scan(ctx)
	return err
}

func (a *app) cmdFetchVideo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one video URL")
	}

	_, height := a.invoker.Resolution(ctx)
	it, err := a.videos.Fetch(ctx, args[0], height)
	if err != nil {
		return err
	}
	fmt.Printf("fetched %s (%s)\n", it.ID, it.LocalPath)
	return nil
}

func (a *app) cmdWatch(ctx context.Context) error {
	sub := a.hub.Subscribe(func(ev wallpaper.StatusEvent) {
		if ev.Err != nil {
			fmt.Printf("%s\t%s\t%v\n", ev.ItemID, ev.Status, ev.Err)
			return
		}
		fmt.Printf("%s\t%s\n", ev.ItemID, ev.Status)
	})
	defer a.hub.Unsubscribe(sub)

	fmt.Println("watching for wallpaper events, ctrl-c to stop")
	<-ctx.Done()
	return nil
}

func (a *app) cmdSetKey(args []string) error {
	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if err := a.cfg.SetWallhavenAPIKey(key); err != nil {
		return err
	}
	if key == "" {
		fmt.Println("wallhaven API key removed")
	} else {
		fmt.Println("wallhaven API key stored")
	}
	return nil
}

func (a *app) cmdBackends() error {
	installed := make(map[string]bool)
	for _, name := range a.invoker.Installed() {
		installed[name] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tINSTALLED")
	for _, name := range backend.Names() {
		state := "no"
		if installed[name] {
			state = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, state)
	}
	return w.Flush()
}
