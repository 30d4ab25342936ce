package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/logger"
)

type seedQuestion struct {
	prompt  string
	options []string
	correct int
}

var questions = []seedQuestion{
	{"Which layer of the OSI model routes packets?", []string{"Transport", "Network", "Data link", "Session"}, 1},
	{"What does DNS resolve?", []string{"MAC addresses", "Host names", "Port numbers", "Routes"}, 1},
	{"Which port does HTTPS use by default?", []string{"80", "8080", "443", "22"}, 2},
	{"Which protocol assigns IP addresses dynamically?", []string{"DHCP", "ARP", "ICMP", "SNMP"}, 0},
	{"How many bits are in an IPv4 address?", []string{"16", "32", "64", "128"}, 1},
	{"Which device forwards frames by MAC address?", []string{"Hub", "Router", "Switch", "Modem"}, 2},
	{"What does TCP guarantee that UDP does not?", []string{"Ordering and delivery", "Lower latency", "Broadcast", "Smaller headers"}, 0},
	{"Which command tests reachability of a host?", []string{"ls", "ping", "cat", "top"}, 1},
	{"What is 192.168.0.0/16?", []string{"Public range", "Loopback", "Private range", "Multicast"}, 2},
	{"Which record maps a name to an IPv6 address?", []string{"A", "MX", "CNAME", "AAAA"}, 3},
}

func main() {
	var (
		title      string
		shareCode  string
		accessCode string
		minutes    int
	)
	flag.StringVar(&title, "title", "Networking Fundamentals", "Assessment title")
	flag.StringVar(&shareCode, "share-code", "net-fundamentals", "Public share code (empty disables public access)")
	flag.StringVar(&accessCode, "access-code", "", "Access code candidates must provide")
	flag.IntVar(&minutes, "minutes", 20, "Time limit in minutes")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	assessmentID := uuid.New()
	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO assessments (id, title, time_limit_seconds, pass_threshold, question_count, shuffle,
			max_attempts, cooldown_seconds, access_code, allow_review, results_visible, share_code)
		 VALUES ($1, $2, $3, 70, 0, TRUE, 3, 600, NULLIF($4, ''), TRUE, TRUE, NULLIF($5, ''))`,
		assessmentID, title, minutes*60, accessCode, shareCode,
	)
	for i, q := range questions {
		options, err := json.Marshal(q.options)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode options")
		}
		batch.Queue(
			`INSERT INTO questions (id, assessment_id, prompt, options, correct_index, position)
			 VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
			uuid.New(), assessmentID, q.prompt, options, q.correct, i+1,
		)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed assessment")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to commit seed")
	}

	fmt.Printf("Seeded assessment %q (%s) with %d questions\n", title, assessmentID, len(questions))
	if shareCode != "" {
		fmt.Printf("Public share code: %s\n", shareCode)
	}
}
