// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	apiAddr := strings.TrimSpace(os.Getenv("ADDR"))
	driver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))
	tgToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	tgChat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (admin routes will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (read routes will 401).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if apiAddr == "" {
		warn("ADDR is empty; default 127.0.0.1:8080 will be used.")
	} else {
		ok("ADDR=" + apiAddr)
	}

	switch driver {
	case "", "sqlite":
		if db == "" {
			warn("DATABASE_URL empty — sqlite defaults to data/sitewatch.db.")
		} else {
			ok("sqlite at " + db)
		}
	case "memory":
		warn("DATABASE_DRIVER=memory — all history is lost on restart.")
	case "postgres":
		if db == "" {
			fail("DATABASE_DRIVER=postgres but DATABASE_URL is empty.")
		}
		ok("postgres DSN present")
	default:
		fail("DATABASE_DRIVER=" + driver + " is not one of memory, sqlite, postgres.")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty — CORS will be wide open (fine for local dev).")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	switch {
	case slack != "":
		ok("Slack webhook configured")
	case tgToken != "" && tgChat != "":
		ok("Telegram bot configured")
	case tgToken != "" || tgChat != "":
		warn("Telegram needs both TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID; only one is set.")
	default:
		warn("No notification channel configured — alerts will be stored but not delivered.")
	}

	ok("preflight passed")
}
