package app

import (
	"sync"

	"tinyhttpd/internal/common"
	"tinyhttpd/internal/httpserver"
)

const maxUsers = 10

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userStore struct {
	mu     sync.Mutex
	users  []user
	max    int
	nextID int
}

func newUserStore(max int) *userStore {
	return &userStore{max: max, nextID: 1}
}

func (s *userStore) list() []user {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]user{}, s.users...)
}

func (s *userStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *userStore) create(name, email string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) >= s.max {
		return user{}, false
	}
	u := user{ID: s.nextID, Name: name, Email: email}
	s.nextID++
	s.users = append(s.users, u)
	return u, true
}

// updateFirst and removeFirst act on the oldest user, since requests carry no id.
func (s *userStore) updateFirst(name, email string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) == 0 {
		return user{}, false
	}
	s.users[0].Name = name
	s.users[0].Email = email
	return s.users[0], true
}

func (s *userStore) removeFirst() (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) == 0 {
		return user{}, false
	}
	u := s.users[0]
	s.users = append(s.users[:0], s.users[1:]...)
	return u, true
}

func (a *App) listUsers() []byte {
	return newDocument().set("users", a.users.list()).bytes()
}

func (a *App) createUser() []byte {
	u, ok := a.users.create("New User", "newuser@example.com")
	if !ok {
		return newDocument().set("error", "Maximum number of users reached").bytes()
	}
	return newDocument().
		set("message", "User created successfully").
		set("id", u.ID).
		bytes()
}

func (a *App) updateUser() []byte {
	u, ok := a.users.updateFirst("Updated User", "updated@example.com")
	if !ok {
		return newDocument().set("error", "No users to update").bytes()
	}
	return newDocument().
		set("message", "User updated successfully").
		set("id", u.ID).
		bytes()
}

func (a *App) deleteUser() []byte {
	u, ok := a.users.removeFirst()
	if !ok {
		return newDocument().set("error", "No users to delete").bytes()
	}
	return newDocument().
		set("message", "User deleted successfully").
		set("id", u.ID).
		bytes()
}

func (a *App) status(stats func() httpserver.Stats) []byte {
	info := common.GetInfo()
	d := newDocument().
		set("status", "running").
		set("timestamp", a.now().Unix()).
		set("users_count", a.users.count()).
		set("host.hostname", info.Hostname).
		set("host.os", info.OS+"/"+info.Arch).
		set("host.version", info.Version).
		set("host.go_version", info.GoVersion)
	if stats != nil {
		d.set("server", stats())
	}
	if a.opts.TunnelSessions != nil {
		d.set("tunnel.sessions", a.opts.TunnelSessions())
	}
	return d.bytes()
}

func (a *App) health() []byte {
	return newDocument().
		set("status", "healthy").
		set("uptime", common.GetInfo().Uptime().String()).
		bytes()
}
