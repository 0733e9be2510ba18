package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tumbi/internal/client/api"
	"tumbi/internal/client/app"
	"tumbi/internal/client/feed"
	"tumbi/internal/client/session"
	"tumbi/internal/client/view"
	"tumbi/internal/infra/obs"
)

func main() {
	apiFlag := flag.String("api", envOr("TUMBI_API", "http://localhost:8080/api"), "API base URL")
	sessionFlag := flag.String("session", "", "session file (default ~/.tumbi/session.toml)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := obs.NewConsoleLogger(os.Stderr, level)

	path := *sessionFlag
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			fail(err)
		}
		path = p
	}
	sess, err := session.Load(path)
	if err != nil {
		fail(err)
	}

	ctrl := app.New(sess, api.New(*apiFlag, sess), logger)
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "login":
		cmdLogin(ctx, ctrl, args[1:])
	case "logout":
		if err := ctrl.Logout(); err != nil {
			fail(err)
		}
		fmt.Println("Signed out.")
	case "feed":
		cmdFeed(ctx, ctrl, args[1:], *jsonFlag)
	case "saved":
		cmdSaved(ctx, ctrl, *jsonFlag)
	case "save":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: tumbi save <listing-id>")
			os.Exit(1)
		}
		cmdSave(ctx, ctrl, args[1])
	case "chat":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: tumbi chat <listing-id>")
			os.Exit(1)
		}
		cmdChat(ctx, ctrl, args[1])
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: tumbi open <listing-id|slug|url>")
			os.Exit(1)
		}
		cmdOpen(ctx, ctrl, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: tumbi [--api <url>] [--session <file>] [--json] [-v] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  login <email|phone>       Sign in (password read from TUMBI_PASSWORD or stdin)")
	fmt.Fprintln(os.Stderr, "  logout                    Forget the stored session")
	fmt.Fprintln(os.Stderr, "  feed [filters]            Browse listings")
	fmt.Fprintln(os.Stderr, "  saved                     List saved listings")
	fmt.Fprintln(os.Stderr, "  save <listing-id>         Toggle a saved listing")
	fmt.Fprintln(os.Stderr, "  chat <listing-id>         Message the seller of a listing")
	fmt.Fprintln(os.Stderr, "  open <id|slug|url>        Show one listing")
}

func cmdLogin(ctx context.Context, ctrl *app.Controller, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tumbi login <email|phone>")
		os.Exit(1)
	}
	password := os.Getenv("TUMBI_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fail(err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	user, err := ctrl.Login(ctx, args[0], password)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Signed in as %s.\n", user.Name)
}

func cmdFeed(ctx context.Context, ctrl *app.Controller, args []string, jsonOut bool) {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	search := fs.String("search", "", "text to look for in title or description")
	category := fs.String("category", "", "main category")
	sub := fs.String("sub", "", "sub category")
	city := fs.String("city", "", "city")
	sortBy := fs.String("sort", "newest", "newest, oldest, price-asc or price-desc")
	pages := fs.Int("pages", 1, "number of pages to load")
	_ = fs.Parse(args)

	err := ctrl.Feed.SetFilters(ctx, feed.Filters{
		Search:       *search,
		MainCategory: *category,
		SubCategory:  *sub,
		City:         *city,
		Sort:         *sortBy,
	})
	if err != nil {
		fail(err)
	}
	for i := 1; i < *pages; i++ {
		if !ctrl.Feed.Snapshot().HasMore {
			break
		}
		if err := ctrl.Feed.OnSentinelVisible(ctx); err != nil {
			fail(err)
		}
	}
	snap := ctrl.Feed.Snapshot()
	if jsonOut {
		outputJSON(snap.Items)
		return
	}
	printListings(snap.Items)
	if snap.HasMore {
		fmt.Printf("... more available (use -pages %d)\n", *pages+1)
	}
}

func cmdSaved(ctx context.Context, ctrl *app.Controller, jsonOut bool) {
	if err := ctrl.Navigate(ctx, view.State{Name: view.Saved}); err != nil {
		fail(err)
	}
	items, err := ctrl.API.SavedListings(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	printListings(items)
}

func cmdSave(ctx context.Context, ctrl *app.Controller, listingID string) {
	if err := ctrl.Saved.Reconcile(ctx); err != nil && !errors.Is(err, api.ErrUnauthorized) {
		fail(err)
	}
	on, err := ctrl.ToggleSaved(ctx, listingID)
	if err != nil {
		fail(err)
	}
	if on {
		fmt.Println("Saved.")
	} else {
		fmt.Println("Removed from saved.")
	}
}

func cmdChat(ctx context.Context, ctrl *app.Controller, listingID string) {
	me := ctrl.Session.UserID()
	printed := 0
	ctrl.OnTranscript = func(_ string, msgs []api.Message) {
		if printed > len(msgs) {
			printed = 0
		}
		for _, m := range msgs[printed:] {
			who := "them"
			if m.SenderID == me {
				who = "me"
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), who, m.Content)
		}
		printed = len(msgs)
	}
	if err := ctrl.Navigate(ctx, view.State{Name: view.Details, ListingID: listingID}); err != nil {
		fail(err)
	}
	conv, err := ctrl.OpenConversation(ctx, listingID)
	if err != nil {
		fail(err)
	}
	fmt.Fprintf(os.Stderr, "Chatting about %s. Type a message and press enter; Ctrl-D to quit.\n", conv.ListingID)

	// pending holds a line the server did not accept; an empty line resends it.
	var pending string

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				if pending == "" {
					continue
				}
				line = pending
			}
			if err := ctrl.SendMessage(ctx, line); err != nil {
				pending = line
				fmt.Fprintf(os.Stderr, "not sent: %v\nPress enter to retry %q, or type a new message.\n", err, pending)
				continue
			}
			pending = ""
		}
	}
}

func cmdOpen(ctx context.Context, ctrl *app.Controller, ref string, jsonOut bool) {
	listing, ok := ctrl.OpenDeepLink(ctx, ref)
	if !ok {
		fmt.Fprintln(os.Stderr, "Listing not found, showing the feed instead.")
		cmdFeed(ctx, ctrl, nil, jsonOut)
		return
	}
	if jsonOut {
		outputJSON(listing)
		return
	}
	fmt.Printf("%s\n", listing.Title)
	fmt.Printf("Price:    %s\n", formatPrice(listing))
	fmt.Printf("Location: %s\n", listing.Location)
	fmt.Printf("Category: %s\n", strings.Trim(listing.MainCategory+" / "+listing.SubCategory, " /"))
	fmt.Printf("Views:    %d\n", listing.Views)
	if listing.Seller != nil {
		fmt.Printf("Seller:   %s\n", listing.Seller.Name)
	}
	if listing.Description != "" {
		fmt.Printf("\n%s\n", listing.Description)
	}
}

func printListings(items []api.Listing) {
	if len(items) == 0 {
		fmt.Println("No listings found.")
		return
	}
	for _, l := range items {
		fmt.Printf("%-36s %-32s %14s  %s\n", l.ID, truncate(l.Title, 32), formatPrice(l), l.Location)
	}
}

func formatPrice(l api.Listing) string {
	if l.Unit == "" {
		return fmt.Sprintf("%.2f", l.Price)
	}
	return fmt.Sprintf("%.2f/%s", l.Price, l.Unit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(err error) {
	if errors.Is(err, app.ErrLoginRequired) || errors.Is(err, api.ErrUnauthorized) {
		fmt.Fprintln(os.Stderr, "error: sign in first with `tumbi login`")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
