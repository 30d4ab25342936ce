package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/service"
	"golang.org/x/term"
)

// issue-token signs candidate, public and admin JWTs for operators and
// local testing. Missing values are prompted for when stdin is a terminal.
func main() {
	var (
		kind       string
		userID     string
		email      string
		assessment string
		perms      string
		askSecret  bool
	)
	flag.StringVar(&kind, "type", "", "Token type: candidate, public or admin")
	flag.StringVar(&userID, "user", "", "User ID (candidate and admin tokens)")
	flag.StringVar(&email, "email", "", "Contact email (public tokens)")
	flag.StringVar(&assessment, "assessment", "", "Assessment ID (public tokens)")
	flag.StringVar(&perms, "permissions", "", "Comma-separated permissions, or \"all\" (admin tokens)")
	flag.BoolVar(&askSecret, "ask-secret", false, "Prompt for the JWT secret instead of reading JWT_SECRET")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	interactive := term.IsTerminal(int(syscall.Stdin))
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label, current string) string {
		if current != "" || !interactive {
			return current
		}
		fmt.Printf("%s: ", label)
		v, _ := reader.ReadString('\n')
		return strings.TrimSpace(v)
	}

	if askSecret {
		if !interactive {
			fail("-ask-secret needs a terminal")
		}
		fmt.Print("JWT secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fail("reading secret: %v", err)
		}
		cfg.JWTSecret = string(secret)
	}

	authService := service.NewAuthService(cfg)

	var (
		token string
		err   error
	)
	switch prompt("Token type (candidate/public/admin)", kind) {
	case "candidate":
		id := prompt("User ID", userID)
		if id == "" {
			fail("user ID is required")
		}
		token, err = authService.GenerateCandidateToken(id)

	case "public":
		contact := prompt("Contact email", email)
		if contact == "" {
			fail("contact email is required")
		}
		assessmentID, parseErr := uuid.Parse(prompt("Assessment ID", assessment))
		if parseErr != nil {
			fail("invalid assessment ID: %v", parseErr)
		}
		fingerprint, fpErr := authService.Fingerprint(contact)
		if fpErr != nil {
			fail("fingerprint contact: %v", fpErr)
		}
		token, err = authService.GeneratePublicToken(fingerprint, assessmentID)

	case "admin":
		id := prompt("User ID", userID)
		if id == "" {
			fail("user ID is required")
		}
		granted, parseErr := parsePermissions(prompt("Permissions (comma-separated or all)", perms))
		if parseErr != nil {
			fail("%v", parseErr)
		}
		token, err = authService.GenerateAdminToken(id, granted)

	default:
		fail("type must be candidate, public or admin")
	}
	if err != nil {
		fail("signing token: %v", err)
	}

	fmt.Println(token)
}

func parsePermissions(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "all" {
		var all []string
		for _, p := range model.AllPermissions() {
			all = append(all, string(p))
		}
		return all, nil
	}

	var out []string
	for _, code := range strings.Split(raw, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		p, ok := model.ParsePermission(code)
		if !ok {
			return nil, fmt.Errorf("unknown permission %q", code)
		}
		out = append(out, string(p))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one permission is required")
	}
	return out, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
