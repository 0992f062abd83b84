package domain

import (
	"github.com/google/uuid"
)

// CurrentIndexVersion is the only version this package knows how to read.
// An index persisted with any other value is rejected rather than
// silently misinterpreted.
const CurrentIndexVersion = 1

// ServerProfileIndex is the persisted manifest of all profiles captured
// for one server, plus which one (if any) is currently active.
type ServerProfileIndex struct {
	ServerSafeName  string          `json:"serverSafeName"`
	Profiles        []ServerProfile `json:"profiles"`
	ActiveProfileID *uuid.UUID      `json:"activeProfileId"`
	Version         int             `json:"version"`
}

// NewServerProfileIndex creates an empty index for the given server.
func NewServerProfileIndex(serverSafeName string) *ServerProfileIndex {
	return &ServerProfileIndex{
		ServerSafeName: serverSafeName,
		Profiles:       nil,
		Version:        CurrentIndexVersion,
	}
}

// CheckVersion rejects an index whose version this build does not
// understand, instead of silently reading it as if compatible.
func (idx *ServerProfileIndex) CheckVersion() error {
	if idx == nil {
		return nil
	}
	if idx.Version != CurrentIndexVersion {
		return ErrUnsupportedIndexVer
	}
	return nil
}

// FindByName returns the profile with the given name, if any.
func (idx *ServerProfileIndex) FindByName(name string) (*ServerProfile, bool) {
	for i := range idx.Profiles {
		if idx.Profiles[i].Name == name {
			return &idx.Profiles[i], true
		}
	}
	return nil, false
}

// FindByID returns the profile with the given id, if any.
func (idx *ServerProfileIndex) FindByID(id uuid.UUID) (*ServerProfile, bool) {
	for i := range idx.Profiles {
		if idx.Profiles[i].ID == id {
			return &idx.Profiles[i], true
		}
	}
	return nil, false
}

// HasName reports whether a profile with the given name already exists.
func (idx *ServerProfileIndex) HasName(name string) bool {
	_, ok := idx.FindByName(name)
	return ok
}

// Append adds a new profile to the index. Callers must have already
// verified name uniqueness.
func (idx *ServerProfileIndex) Append(p ServerProfile) {
	idx.Profiles = append(idx.Profiles, p)
}

// Remove deletes the profile with the given id, clearing ActiveProfileID
// if it pointed at the removed profile. Returns false if no such profile
// existed.
func (idx *ServerProfileIndex) Remove(id uuid.UUID) bool {
	for i := range idx.Profiles {
		if idx.Profiles[i].ID == id {
			idx.Profiles = append(idx.Profiles[:i], idx.Profiles[i+1:]...)
			if idx.ActiveProfileID != nil && *idx.ActiveProfileID == id {
				idx.ActiveProfileID = nil
			}
			return true
		}
	}
	return false
}

// SetActive marks the profile with the given id as active. Returns false
// if no such profile exists.
func (idx *ServerProfileIndex) SetActive(id uuid.UUID) bool {
	if _, ok := idx.FindByID(id); !ok {
		return false
	}
	active := id
	idx.ActiveProfileID = &active
	return true
}

// ActiveProfile returns the currently active profile, if any.
func (idx *ServerProfileIndex) ActiveProfile() (*ServerProfile, bool) {
	if idx.ActiveProfileID == nil {
		return nil, false
	}
	return idx.FindByID(*idx.ActiveProfileID)
}

// Clone returns a deep copy of the index.
func (idx *ServerProfileIndex) Clone() *ServerProfileIndex {
	if idx == nil {
		return nil
	}
	cp := &ServerProfileIndex{
		ServerSafeName: idx.ServerSafeName,
		Version:        idx.Version,
	}
	cp.Profiles = make([]ServerProfile, len(idx.Profiles))
	for i := range idx.Profiles {
		cp.Profiles[i] = *idx.Profiles[i].Clone()
	}
	if idx.ActiveProfileID != nil {
		active := *idx.ActiveProfileID
		cp.ActiveProfileID = &active
	}
	return cp
}
