package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "offline-player",
		Short: "Offline Player CLI - download and play FairPlay protected movies",
		Long:  `A command-line interface for downloading FairPlay protected HLS movies and playing them online or offline.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8089", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var downloadCmd = &cobra.Command{
	Use:   "download [title]",
	Short: "Download a movie for offline playback",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		contentID, _ := cmd.Flags().GetString("content-id")
		videoID, _ := cmd.Flags().GetFloat64("video-id")

		body, err := apiRequest(http.MethodPost, "/api/v1/downloads", map[string]interface{}{
			"title":      args[0],
			"content_id": contentID,
			"video_id":   videoID,
		})
		exitOnError(err)

		var task map[string]interface{}
		json.Unmarshal(body, &task)
		fmt.Printf("Download scheduled!\n")
		fmt.Printf("Task:  %v\n", task["id"])
		fmt.Printf("State: %v\n", task["state"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloads",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		if completed, _ := cmd.Flags().GetBool("completed"); completed {
			listCompleted()
			return
		}

		body, err := apiRequest(http.MethodGet, "/api/v1/downloads", nil)
		exitOnError(err)

		var tasks []struct {
			ID         string `json:"id"`
			State      string `json:"state"`
			Bytes      int64  `json:"bytes"`
			Location   string `json:"location"`
			Descriptor struct {
				Title   string  `json:"title"`
				VideoID float64 `json:"video_id"`
				Percent int     `json:"percent"`
			} `json:"descriptor"`
		}
		exitOnError(json.Unmarshal(body, &tasks))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tVIDEO\tSTATE\tPROGRESS\tSIZE\tLOCATION")
		for _, task := range tasks {
			fmt.Fprintf(w, "%s\t%.0f\t%s\t%d%%\t%s\t%s\n",
				truncate(task.Descriptor.Title, 40),
				task.Descriptor.VideoID,
				task.State,
				task.Descriptor.Percent,
				humanize.Bytes(uint64(task.Bytes)),
				task.Location)
		}
		w.Flush()
	},
}

func listCompleted() {
	body, err := apiRequest(http.MethodGet, "/api/v1/downloads?completed=true", nil)
	exitOnError(err)

	var result struct {
		Completed map[string]string `json:"completed"`
	}
	exitOnError(json.Unmarshal(body, &result))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tLOCATION")
	for title, location := range result.Completed {
		fmt.Fprintf(w, "%s\t%s\n", truncate(title, 40), location)
	}
	w.Flush()
}

// titleCommand builds a command posting to /api/v1/downloads/:title/<action>
func titleCommand(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [title]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ensureServer()
			_, err := apiRequest(http.MethodPost, "/api/v1/downloads/"+url.PathEscape(args[0])+"/"+action, nil)
			exitOnError(err)
			fmt.Println(done)
		},
	}
}

var (
	pauseCmd  = titleCommand("pause", "Pause a running download", "Download paused")
	resumeCmd = titleCommand("resume", "Resume a paused download", "Download resumed")
	cancelCmd = titleCommand("cancel", "Cancel a download", "Download cancelled")
)

var removeCmd = &cobra.Command{
	Use:   "remove [title]",
	Short: "Delete a downloaded movie and its bookmark",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		_, err := apiRequest(http.MethodDelete, "/api/v1/downloads/"+url.PathEscape(args[0]), nil)
		exitOnError(err)
		fmt.Println("Download removed")
	},
}

var playCmd = &cobra.Command{
	Use:   "play [title]",
	Short: "Start a playback session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		contentID, _ := cmd.Flags().GetString("content-id")
		videoID, _ := cmd.Flags().GetFloat64("video-id")
		mode, _ := cmd.Flags().GetString("mode")
		partial, _ := cmd.Flags().GetBool("partial")

		body, err := apiRequest(http.MethodPost, "/api/v1/playback", map[string]interface{}{
			"title":                args[0],
			"content_id":           contentID,
			"video_id":             videoID,
			"mode":                 mode,
			"partially_downloaded": partial,
		})
		exitOnError(err)
		printSession(body)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show a playback session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		body, err := apiRequest(http.MethodGet, "/api/v1/playback/"+args[0], nil)
		exitOnError(err)
		printSession(body)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [session-id]",
	Short: "Stop a playback session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		_, err := apiRequest(http.MethodDelete, "/api/v1/playback/"+args[0], nil)
		exitOnError(err)
		fmt.Println("Playback stopped")
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View server logs (download, license, playback, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		query, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		path := fmt.Sprintf("/api/v1/logs/%s?limit=%d", args[0], limit)
		if query != "" {
			path = fmt.Sprintf("/api/v1/logs/%s/search?limit=%d&q=%s", args[0], limit, url.QueryEscape(query))
		}
		body, err := apiRequest(http.MethodGet, path, nil)
		exitOnError(err)

		var result struct {
			Entries []struct {
				Timestamp string `json:"timestamp"`
				Level     string `json:"level"`
				Message   string `json:"message"`
			} `json:"entries"`
		}
		exitOnError(json.Unmarshal(body, &result))
		for _, entry := range result.Entries {
			fmt.Printf("%s %-5s %s\n", entry.Timestamp, entry.Level, entry.Message)
		}
	},
}

func printSession(body []byte) {
	var session map[string]interface{}
	json.Unmarshal(body, &session)

	fmt.Printf("Playback Session:\n")
	fmt.Printf("  ID:         %v\n", session["id"])
	fmt.Printf("  Title:      %v\n", session["title"])
	fmt.Printf("  Mode:       %v\n", session["mode"])
	fmt.Printf("  Status:     %v\n", session["status"])
	if resolution, ok := session["resolution"]; ok {
		fmt.Printf("  Resolution: %v\n", resolution)
	}
	if item, ok := session["item"].(map[string]interface{}); ok {
		fmt.Printf("  Asset:      %v\n", item["asset_url"])
	}
	if session["error"] != nil {
		fmt.Printf("  Error:      %v\n", session["error"])
	}
}

func init() {
	downloadCmd.Flags().StringP("content-id", "c", "", "Content identifier (e.g. 012345-000-A_VO)")
	downloadCmd.Flags().Float64P("video-id", "v", 0, "Numeric video identifier")
	downloadCmd.MarkFlagRequired("content-id")

	playCmd.Flags().StringP("content-id", "c", "", "Content identifier")
	playCmd.Flags().Float64P("video-id", "v", 0, "Numeric video identifier")
	playCmd.Flags().StringP("mode", "m", "online", "Player mode (online, offline)")
	playCmd.Flags().Bool("partial", false, "Play a partially downloaded movie")
	playCmd.MarkFlagRequired("content-id")

	listCmd.Flags().Bool("completed", false, "List finished downloads instead of transfers")

	logsCmd.Flags().StringP("search", "s", "", "Only show entries containing this text")
	logsCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
