package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// issue-token mints an identity token for local development. In production
// tokens come from the identity provider.
func main() {
	var (
		userID  int64
		role    string
		isStaff bool
	)
	flag.Int64Var(&userID, "user", 0, "User ID (prompted when omitted)")
	flag.StringVar(&role, "role", "", "Role: student, professor or admin (prompted when omitted)")
	flag.BoolVar(&isStaff, "staff", false, "Mark the identity as staff")
	flag.Parse()

	cfg := config.Load()
	authService := service.NewAuthService(cfg)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Development Token ===")

	if userID <= 0 {
		fmt.Print("Enter User ID: ")
		raw, _ := reader.ReadString('\n')
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			fmt.Println("Error: User ID must be a positive integer")
			os.Exit(1)
		}
		userID = id
	}

	if role == "" {
		fmt.Print("Enter Role [student]: ")
		raw, _ := reader.ReadString('\n')
		role = strings.TrimSpace(raw)
		if role == "" {
			role = string(model.RoleStudent)
		}
	}

	switch model.Role(role) {
	case model.RoleStudent, model.RoleProfessor, model.RoleAdmin:
	default:
		fmt.Printf("Error: unknown role %q\n", role)
		os.Exit(1)
	}

	token, err := authService.GenerateToken(model.Identity{
		UserID:  userID,
		Role:    model.Role(role),
		IsStaff: isStaff,
	})
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nToken (valid %s):\n%s\n", cfg.JWTExpiry, token)
}
