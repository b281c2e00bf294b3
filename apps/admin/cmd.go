package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrRepo    user.Repository
	checkinSvc *checkin.Service
	badgeSvc   *badge.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - create or update a user; the password is prompted next")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a user's password")
	fmt.Println("  issuebadges -issuer USERNAME|EMAIL [-people ID,ID,...] [-all-students] [-valid-days N] - issue identity badges")
	fmt.Println("  expiresessions - deactivate check-in sessions past their expiry")
	fmt.Println("  migrate COMMAND [args] - run database migrations (goose passthrough)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	issueBadgesCmd := flag.NewFlagSet("issuebadges", flag.ExitOnError)
	issueBadgesIssuer := issueBadgesCmd.String("issuer", "", "Username or email of the admin issuing the badges.")
	issueBadgesPeople := issueBadgesCmd.String("people", "", "Comma-separated person IDs to issue badges for.")
	issueBadgesAll := issueBadgesCmd.Bool("all-students", false, "Issue badges for every active student.")
	issueBadgesDays := issueBadgesCmd.Int("valid-days", 0, "Badge validity in days. Defaults to the configured validity.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "issuebadges":
		if err := issueBadgesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *issueBadgesIssuer == "" || (*issueBadgesPeople == "" && !*issueBadgesAll) {
			issueBadgesCmd.Usage()
			return errHelp
		}
		return cli.issueBadges(*issueBadgesIssuer, *issueBadgesPeople, *issueBadgesAll, *issueBadgesDays)
	case "expiresessions":
		return cli.expireSessions()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
