// Command bans manages the origin ban list used by order placement.
//
//	go run ./scripts/bans ban <ip> [reason...]
//	go run ./scripts/bans unban <ip>
//	go run ./scripts/bans check <ip>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"github.com/safar/order-engine/internal/config"
	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/store"
)

const usage = "Usage: go run ./scripts/bans [ban|unban|check] <ip> [reason...]"

var errUsage = errors.New(usage)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}

	err = run(context.Background(), db, os.Args[1:], os.Stdout)
	db.Close()
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, q store.DBTX, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}

	ip := strings.TrimSpace(args[1])
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid ip address %q", args[1])
	}

	switch args[0] {
	case "ban":
		reason := strings.TrimSpace(strings.Join(args[2:], " "))
		if err := store.BanOrigin(ctx, q, ip, reason); err != nil {
			return err
		}
		fmt.Fprintf(out, "Banned %s\n", ip)
	case "unban":
		if err := store.UnbanOrigin(ctx, q, ip); err != nil {
			return err
		}
		fmt.Fprintf(out, "Unbanned %s\n", ip)
	case "check":
		banned, err := store.IsOriginBanned(ctx, q, ip)
		if err != nil {
			return err
		}
		if banned {
			fmt.Fprintf(out, "%s is banned\n", ip)
		} else {
			fmt.Fprintf(out, "%s is not banned\n", ip)
		}
	default:
		return errUsage
	}
	return nil
}
