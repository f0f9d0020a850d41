package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"manhwahub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type libraryListResponse struct {
	OwnerScope string                `json:"owner_scope"`
	Total      int                   `json:"total"`
	Items      []models.LibraryEntry `json:"items"`
}

type recommendResponse struct {
	Items    []models.RecommendedTitle `json:"items"`
	Disabled bool                      `json:"disabled,omitempty"`
}

func main() {
	global := flag.NewFlagSet("manhwahub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch cmd {
	case "session":
		handleSession(ctx, client, *baseURL, sub, args[2:])
	case "catalog":
		handleCatalog(ctx, client, *baseURL, sub, args[2:])
	case "library":
		handleLibrary(ctx, client, *baseURL, sub, args[2:])
	case "recommend":
		handleRecommend(ctx, client, *baseURL, args[1:])
	case "sync":
		handleSync(sub, args[2:])
	case "notify":
		handleNotify(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleSession(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "signin":
		fs := flag.NewFlagSet("session signin", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/session/signin", payload, &resp); err != nil {
			log.Fatalf("signin failed: %v", err)
		}
		printJSON(resp)
	case "signout":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/session/signout", nil, &resp); err != nil {
			log.Fatalf("signout failed: %v", err)
		}
		printJSON(resp)
	case "show":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/session", nil, &resp); err != nil {
			log.Fatalf("session failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manhwahub session <signin|signout|show>")
	}
}

func handleCatalog(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("catalog search", flag.ExitOnError)
		query := fs.String("q", "", "search text")
		genre := fs.String("genre", "", "genre filter")
		country := fs.String("country", "", "origin country filter")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/catalog/search")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *query != "" {
			qv.Set("q", *query)
		}
		if *genre != "" {
			qv.Set("genre", *genre)
		}
		if *country != "" {
			qv.Set("origin", *country)
		}
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "trending":
		fs := flag.NewFlagSet("catalog trending", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)

		endpoint := fmt.Sprintf("%s/catalog/trending?page=%d", baseURL, *page)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, endpoint, nil, &resp); err != nil {
			log.Fatalf("trending failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manhwahub catalog <search|trending>")
	}
}

func handleLibrary(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "add":
		fs := flag.NewFlagSet("library add", flag.ExitOnError)
		titleJSON := fs.String("title", "", "title JSON as returned by catalog search")
		status := fs.String("status", "want_to_read", "reading status")
		_ = fs.Parse(args)
		if *titleJSON == "" {
			log.Fatal("title JSON is required")
		}

		var title models.Title
		if err := json.Unmarshal([]byte(*titleJSON), &title); err != nil {
			log.Fatalf("parse title: %v", err)
		}

		payload := map[string]any{"title": title, "status": *status}
		var resp models.LibraryEntry
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/library", payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		fs := flag.NewFlagSet("library remove", flag.ExitOnError)
		titleID := fs.String("title-id", "", "title id")
		_ = fs.Parse(args)
		if *titleID == "" {
			log.Fatal("title-id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/library/"+url.PathEscape(*titleID), nil, &resp); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("library list", flag.ExitOnError)
		status := fs.String("status", "", "status filter")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/library")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		if *status != "" {
			qv := u.Query()
			qv.Set("status", *status)
			u.RawQuery = qv.Encode()
		}

		var resp libraryListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "status":
		fs := flag.NewFlagSet("library status", flag.ExitOnError)
		titleID := fs.String("title-id", "", "title id")
		_ = fs.Parse(args)
		if *titleID == "" {
			log.Fatal("title-id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/library/"+url.PathEscape(*titleID)+"/status", nil, &resp); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manhwahub library <add|remove|list|status>")
	}
}

func handleRecommend(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	focusJSON := fs.String("focus", "", "optional focus title JSON")
	_ = fs.Parse(args)

	payload := map[string]any{}
	if *focusJSON != "" {
		var focus models.Title
		if err := json.Unmarshal([]byte(*focusJSON), &focus); err != nil {
			log.Fatalf("parse focus title: %v", err)
		}
		payload["focus"] = focus
	}

	var resp recommendResponse
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/recommendations", payload, &resp); err != nil {
		log.Fatalf("recommend failed: %v", err)
	}
	if resp.Disabled {
		log.Println("recommendations are disabled, no API key configured on the server")
	}
	printJSON(resp.Items)
}

func handleSync(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runSyncTCP(*addr, *pretty); err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: manhwahub sync listen")
	}
}

func handleNotify(baseURL, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: manhwahub notify subscribe")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/library.json", "output JSON path")
		_ = fs.Parse(args)

		entries, err := fetchLibrary(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, entries); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d entries to %s", len(entries), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/library.csv", "output CSV path")
		_ = fs.Parse(args)

		entries, err := fetchLibrary(ctx, client, baseURL)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, entries); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d entries to %s", len(entries), *out)
	default:
		log.Fatal("usage: manhwahub export <json|csv>")
	}
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[notify] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func fetchLibrary(ctx context.Context, client *http.Client, baseURL string) ([]models.LibraryEntry, error) {
	var resp libraryListResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/library", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func writeJSON(path string, entries []models.LibraryEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, entries []models.LibraryEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "provider", "title", "status", "saved_at", "genres",
	}); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writer.Write([]string{
			entry.Title.ID,
			entry.Title.Provider,
			entry.Title.DisplayTitle(),
			string(entry.ReadingStatus),
			fmt.Sprintf("%d", entry.SavedAt),
			strings.Join(entry.Title.Genres, ","),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("manhwahub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  session signin|signout|show")
	fmt.Println("  catalog search|trending")
	fmt.Println("  library add|remove|list|status")
	fmt.Println("  recommend")
	fmt.Println("  sync listen")
	fmt.Println("  notify subscribe")
	fmt.Println("  export json|csv")
}
