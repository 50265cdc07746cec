// Command adduser creates a verified account directly in the database,
// for operators seeding an installation without an SMS provider.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/example/fleetledger/internal/config"
	"github.com/example/fleetledger/internal/database"
	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

func main() {
	var p models.Profile
	flag.StringVar(&p.FullName, "name", "", "full name")
	flag.StringVar(&p.Phone, "phone", "", "phone number used to log in")
	flag.StringVar(&p.Email, "email", "", "email address")
	flag.StringVar(&p.Address, "address", "", "street address")
	flag.StringVar(&p.City, "city", "", "city")
	flag.StringVar(&p.State, "state", "", "state")
	flag.StringVar(&p.Zip, "zip", "", "postal code")
	flag.StringVar(&p.Company, "company", "", "company (optional)")
	flag.Parse()

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(1)
	}
	p.Password = password

	cfg := config.Load()
	db, err := database.Connect(cfg.DatabaseURL, database.Options{}, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	user, err := createUser(context.Background(), store.NewGormStore(db), utils.NewHasher(bcrypt.DefaultCost), p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created user %s (%s)\n", user.ID, user.Phone)
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func createUser(ctx context.Context, users store.UserStore, hasher utils.Hasher, p models.Profile) (*models.User, error) {
	p = p.Normalize()
	if missing := p.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	hash, err := hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FullName:     p.FullName,
		Phone:        p.Phone,
		Email:        p.Email,
		PasswordHash: hash,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		Zip:          p.Zip,
		Company:      p.Company,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("phone or email already registered")
		}
		return nil, err
	}
	return user, nil
}
