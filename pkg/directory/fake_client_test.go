package directory

import (
	"context"
	"errors"
)

// fakeClient is an in-memory Client for facade and cache tests.
// Call counts track how often each delegate method runs.
type fakeClient struct {
	users   map[string]*User
	units   map[string]*Unit
	systems map[int]*System
	rights  map[string][]Right
	passwds map[string]string

	failOps map[string]bool // op tag -> fail with *RemoteError

	userCalls   int
	unitCalls   int
	systemCalls int
	rightsCalls int
	authCalls   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		users:   make(map[string]*User),
		units:   make(map[string]*Unit),
		systems: make(map[int]*System),
		rights:  make(map[string][]Right),
		passwds: make(map[string]string),
		failOps: make(map[string]bool),
	}
}

func (f *fakeClient) remoteErr(op string) error {
	return &RemoteError{Op: op, Err: errors.New("injected failure")}
}

func (f *fakeClient) GetUser(_ context.Context, login string) (*User, error) {
	f.userCalls++
	if f.failOps["get_user"] {
		return nil, f.remoteErr("get_user")
	}
	return f.users[login], nil
}

func (f *fakeClient) GetUnit(_ context.Context, key string) (*Unit, error) {
	f.unitCalls++
	if f.failOps["get_unit"] {
		return nil, f.remoteErr("get_unit")
	}
	return f.units[key], nil
}

func (f *fakeClient) GetSystem(_ context.Context, id int) (*System, error) {
	f.systemCalls++
	if f.failOps["get_system"] {
		return nil, f.remoteErr("get_system")
	}
	return f.systems[id], nil
}

func (f *fakeClient) GetUserRights(_ context.Context, login string) ([]Right, error) {
	f.rightsCalls++
	if f.failOps["get_user_rights"] {
		return nil, f.remoteErr("get_user_rights")
	}
	rights := f.rights[login]
	if rights == nil {
		return []Right{}, nil
	}
	return rights, nil
}

func (f *fakeClient) Authenticate(_ context.Context, login, password string) (bool, error) {
	f.authCalls++
	if f.failOps["authenticate"] {
		return false, f.remoteErr("authenticate")
	}
	stored, ok := f.passwds[login]
	return ok && stored == password, nil
}
