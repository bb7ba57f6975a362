package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
)

// serverEvent mirrors the JSON messages of /api/v1/events
type serverEvent struct {
	Kind        string  `json:"kind"`
	VideoID     float64 `json:"video_id"`
	Title       string  `json:"title"`
	Error       string  `json:"error"`
	Progression *struct {
		DownloadProgress int    `json:"download_progress"`
		BytesDownloaded  string `json:"bytes_downloaded"`
		TotalBytes       string `json:"total_bytes"`
	} `json:"progression"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live download progress",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		untilDone, _ := cmd.Flags().GetBool("until-done")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, eventsURL(), nil)
		exitOnError(err)
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		progress := mpb.NewWithContext(ctx, mpb.WithWidth(64))
		watcher := newProgressWatcher(progress)

		for {
			var event serverEvent
			if err := conn.ReadJSON(&event); err != nil {
				break
			}
			watcher.handle(event)
			if untilDone && watcher.idle() {
				break
			}
		}

		cancel()
		progress.Wait()
		for _, line := range watcher.failures {
			fmt.Fprintln(os.Stderr, line)
		}
	},
}

func init() {
	watchCmd.Flags().Bool("until-done", false, "Exit once every watched download has finished")
}

// eventsURL turns the server URL into the websocket address of the event stream
func eventsURL() string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "ws://localhost:8089/api/v1/events"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/events"
	return u.String()
}

// titleBar tracks one download bar
type titleBar struct {
	bar     *mpb.Bar
	percent int
}

type progressWatcher struct {
	progress *mpb.Progress
	bars     map[string]*titleBar
	active   int
	finished int
	failures []string
}

func newProgressWatcher(progress *mpb.Progress) *progressWatcher {
	return &progressWatcher{
		progress: progress,
		bars:     make(map[string]*titleBar),
	}
}

func (w *progressWatcher) barFor(title string) *titleBar {
	if b, ok := w.bars[title]; ok {
		return b
	}
	b := &titleBar{
		bar: w.progress.AddBar(100,
			mpb.PrependDecorators(
				decor.Name(truncate(title, 30), decor.WC{W: 30 + 1, C: decor.DidentRight}),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WC{W: 5}),
			),
		),
	}
	w.bars[title] = b
	w.active++
	return b
}

func (w *progressWatcher) finish(title string, b *titleBar) {
	b.bar.SetTotal(int64(b.percent), true)
	delete(w.bars, title)
	w.active--
	w.finished++
}

func (w *progressWatcher) handle(event serverEvent) {
	switch event.Kind {
	case "download_in_progress":
		if event.Progression == nil {
			return
		}
		b := w.barFor(event.Title)
		if delta := event.Progression.DownloadProgress - b.percent; delta > 0 {
			b.bar.IncrBy(delta)
			b.percent = event.Progression.DownloadProgress
		}
	case "download_finished":
		b := w.barFor(event.Title)
		b.bar.IncrBy(100 - b.percent)
		b.percent = 100
		w.finish(event.Title, b)
	case "download_cancelled":
		if b, ok := w.bars[event.Title]; ok {
			w.finish(event.Title, b)
		}
	case "download_failed", "key_exchange_error":
		w.failures = append(w.failures, fmt.Sprintf("%s: %s", event.Title, event.Error))
		if b, ok := w.bars[event.Title]; ok {
			w.finish(event.Title, b)
		}
	case "connectivity_lost":
		w.failures = append(w.failures, "network connection lost")
	}
}

// idle reports whether at least one download ended and none is running
func (w *progressWatcher) idle() bool {
	return w.active == 0 && w.finished > 0
}
