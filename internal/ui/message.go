package ui

import (
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/tasks"
)

// authChangedMsg signals that the auth snapshot should be re-read.
type authChangedMsg struct{}

// actionDoneMsg carries the outcome of a paid action.
type actionDoneMsg struct {
	kind   models.JobKind
	result *tasks.ActionResult
	err    error
}

// pollMsg is a progress update from the job poller.
type pollMsg tasks.ProgressUpdate

// pollDoneMsg is sent when the poller's update channel closes.
type pollDoneMsg struct{}

// historyMsg carries the local job history.
type historyMsg struct {
	jobs []*models.JobRecord
	err  error
}

// signedOutMsg reports the result of a sign-out.
type signedOutMsg struct{ err error }

// noticeMsg shows a dismissible notice.
type noticeMsg string
