// Package domain contains entity without logic, just meta-data
package domain

import "github.com/google/uuid"

type MemberID string

func NewMemberID() MemberID {
	return MemberID(uuid.NewString())
}

// Member is an immutable snapshot of a participant. Renames produce a new value.
type Member struct {
	ID     MemberID
	Name   string
	Joined bool
}

func NewMember(id MemberID) Member {
	return Member{ID: id}
}

// WithName returns a copy that carries name and is marked joined.
func (m Member) WithName(name string) Member {
	m.Name = name
	m.Joined = true
	return m
}
