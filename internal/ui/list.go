package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/thumbx/internal/models"
)

var (
	_ list.Item = menuItem{}
	_ list.Item = jobItem{}
)

// menuItem is an entry of the home menu.
type menuItem struct {
	view  ViewState
	title string
	desc  string
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

func homeMenu() []list.Item {
	return []list.Item{
		menuItem{LabView, "Thumbnail Lab", "Generate thumbnails from a prompt (1 credit)"},
		menuItem{VideoView, "Video Studio", "Render a video in the background (Pro, 1 credit)"},
		menuItem{HistoryView, "History", "Jobs submitted from this machine"},
	}
}

// jobItem wraps [models.JobRecord] to implement [list.Item].
type jobItem struct {
	job *models.JobRecord
}

func (i jobItem) FilterValue() string { return i.job.Summary() }
func (i jobItem) Title() string {
	return fmt.Sprintf("#%d %s", i.job.Sequence(), i.job.Kind())
}
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.job.Status(), i.job.CreatedAt().Format("Jan 2 15:04"))
	if s := i.job.Summary(); s != "" {
		desc = fmt.Sprintf("%s • %s", desc, s)
	}
	return desc
}
