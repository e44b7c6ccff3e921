package app

import (
	"context"
	"fmt"
)

// CheckResult is the outcome of probing one dependency.
type CheckResult struct {
	Name   string
	Detail string
	Err    error
}

// Check connects to the calendar and validates every source's
// credentials, reporting each independently.
func (a *App) Check(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(a.Synchronizers)+1)

	cal := CheckResult{Name: "caldav"}
	session, err := a.Connect(ctx)
	if err != nil {
		cal.Err = err
	} else {
		cal.Detail = fmt.Sprintf("calendar %q found", a.Settings.CalDAV.Calendar)
		session.Close()
	}
	results = append(results, cal)

	for _, s := range a.Synchronizers {
		r := CheckResult{Name: s.Name}
		login, err := s.Source.ValidateConnection(ctx)
		if err != nil {
			r.Err = err
		} else {
			r.Detail = "authenticated as " + login
		}
		results = append(results, r)
	}

	return results
}
