package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var errIssuerNotAdmin = errors.New("issuer must be an admin")

// issueBadges issues identity badges for the given person IDs, or for every
// active student when allStudents is set. Failures are reported per person
// and do not stop the batch.
func (cli *commandLine) issueBadges(issuer, people string, allStudents bool, validDays int) error {
	ctx := context.Background()

	issuerUsr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(issuer, true /* lower */))
	if err != nil {
		return err
	}
	if !issuerUsr.IsAdmin() {
		return errIssuerNotAdmin
	}

	var ids []string
	if allStudents {
		isActive := true
		students, err := cli.usrRepo.FilterUsers(ctx, user.QueryFilter{Roles: user.StudentRoles, IsActive: &isActive})
		if err != nil {
			return err
		}
		for _, s := range students {
			ids = append(ids, s.ID)
		}
	}
	for _, id := range strings.Split(people, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return errors.New("no one to issue badges for")
	}

	validFor := time.Duration(validDays) * 24 * time.Hour
	results := cli.badgeSvc.IssueBatch(ctx, ids, issuerUsr.ID, validFor)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%s: %v\n", res.PersonID, res.Err)
			continue
		}
		fmt.Printf("%s: badge issued, expires %s\n", res.PersonID, res.Badge.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Printf("issued %d of %d badges\n", len(results)-failed, len(results))
	return nil
}
