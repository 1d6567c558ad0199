package gamefinder

import "github.com/ernie/gamefinder/internal/domain"

// DialogManager tracks which confirmation dialog, if any, each coach
// should currently see. A coach has at most one active dialog; a match
// has at most one dialog entry. Single-writer discipline applies.
type DialogManager struct {
	// insertion-ordered so the oldest dialog for a coach wins
	dialogs []*domain.Match
}

// NewDialogManager creates an empty tracker
func NewDialogManager() *DialogManager {
	return &DialogManager{}
}

// Add records a dialog for the match. No-op if the match already has one.
func (d *DialogManager) Add(match *domain.Match) {
	if match == nil || d.contains(match) {
		return
	}
	d.dialogs = append(d.dialogs, match)
}

// Remove drops the dialog for the match. No-op if absent.
func (d *DialogManager) Remove(match *domain.Match) {
	if match == nil {
		return
	}
	for i, m := range d.dialogs {
		if m.Key() == match.Key() {
			d.dialogs = append(d.dialogs[:i], d.dialogs[i+1:]...)
			return
		}
	}
}

// RemoveCoach drops every dialog involving one of the coach's teams
func (d *DialogManager) RemoveCoach(coach *domain.Coach) {
	if coach == nil {
		return
	}
	kept := d.dialogs[:0]
	for _, m := range d.dialogs {
		if coachInMatch(coach, m) {
			continue
		}
		kept = append(kept, m)
	}
	d.dialogs = kept
}

// RemoveTeam drops every dialog involving the team
func (d *DialogManager) RemoveTeam(team *domain.Team) {
	if team == nil {
		return
	}
	kept := d.dialogs[:0]
	for _, m := range d.dialogs {
		if m.Includes(team) {
			continue
		}
		kept = append(kept, m)
	}
	d.dialogs = kept
}

// GetActiveDialog returns the oldest dialog involving the coach, nil if none
func (d *DialogManager) GetActiveDialog(coach *domain.Coach) *domain.Match {
	if coach == nil {
		return nil
	}
	for _, m := range d.dialogs {
		if coachInMatch(coach, m) {
			return m
		}
	}
	return nil
}

// Clear drops all dialogs
func (d *DialogManager) Clear() {
	d.dialogs = nil
}

// Size returns the number of active dialogs
func (d *DialogManager) Size() int {
	return len(d.dialogs)
}

func (d *DialogManager) contains(match *domain.Match) bool {
	for _, m := range d.dialogs {
		if m.Key() == match.Key() {
			return true
		}
	}
	return false
}

func coachInMatch(coach *domain.Coach, m *domain.Match) bool {
	return (m.Team1.Coach != nil && m.Team1.Coach.ID == coach.ID) ||
		(m.Team2.Coach != nil && m.Team2.Coach.ID == coach.ID)
}
