package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func leaderboardCmd(args []string) {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	limit := fs.Int("limit", 10, "rows")
	_ = fs.Parse(args)

	get(fmt.Sprintf("%s/v1/leaderboard?limit=%d", strings.TrimRight(strings.TrimSpace(*baseURL), "/"), *limit))
}

func playerCmd(args []string) {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	id := fs.Uint("id", 0, "player id (required)")
	deaths := fs.Bool("deaths", false, "list indexed deaths instead of the live status")
	_ = fs.Parse(args)

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	u := fmt.Sprintf("%s/v1/players/%d", strings.TrimRight(strings.TrimSpace(*baseURL), "/"), *id)
	if *deaths {
		u += "/deaths"
	}
	get(u)
}

func get(u string) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
