// Package dummydb provides in-memory repositories for tests and local hacking.
package dummydb

import (
	"sync"

	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/audit"
	"github.com/aulanet/campus/core/chat"
	"github.com/aulanet/campus/core/forum"
	"github.com/aulanet/campus/core/notification"
	"github.com/aulanet/campus/core/school"
	"github.com/aulanet/campus/core/settings"
	"github.com/aulanet/campus/core/support"
	"github.com/aulanet/campus/core/user"
)

type (
	DB struct {
		user         *userTable
		school       *schoolTables
		assignment   *assignmentTables
		forum        *forumTables
		chat         *chatTables
		notification *notificationTable
		audit        *auditTable
		settings     *settingsTable
		support      *supportTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTables struct {
		sync.RWMutex
		subjects    map[string]*school.Subject
		enrollments map[string]*school.Enrollment // key: studentID + "/" + subjectID
		units       map[string]*school.Unit
		contents    map[string]*school.Content
		documents   map[string]*school.Document
	}

	assignmentTables struct {
		sync.RWMutex
		assignments map[string]*assignment.Assignment
		submissions map[string]*assignment.Submission
	}

	forumTables struct {
		sync.RWMutex
		forums    map[string]*forum.Forum
		questions map[string]*forum.Question
		answers   map[string]*forum.Answer
	}

	chatTables struct {
		sync.RWMutex
		conversations map[string]*chat.Conversation
		participants  map[string][]*chat.Participant // by conversation id
		messages      map[string]*chat.Message
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}

	auditTable struct {
		sync.RWMutex
		logs []audit.Log
	}

	settingsTable struct {
		sync.RWMutex
		row settings.Settings
	}

	supportTable struct {
		sync.RWMutex
		table map[string]*support.Ticket
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTables{
			subjects:    make(map[string]*school.Subject),
			enrollments: make(map[string]*school.Enrollment),
			units:       make(map[string]*school.Unit),
			contents:    make(map[string]*school.Content),
			documents:   make(map[string]*school.Document),
		},
		assignment: &assignmentTables{
			assignments: make(map[string]*assignment.Assignment),
			submissions: make(map[string]*assignment.Submission),
		},
		forum: &forumTables{
			forums:    make(map[string]*forum.Forum),
			questions: make(map[string]*forum.Question),
			answers:   make(map[string]*forum.Answer),
		},
		chat: &chatTables{
			conversations: make(map[string]*chat.Conversation),
			participants:  make(map[string][]*chat.Participant),
			messages:      make(map[string]*chat.Message),
		},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		audit:        &auditTable{},
		settings:     &settingsTable{row: settings.Settings{RetryAfterSecs: 300}},
		support:      &supportTable{table: make(map[string]*support.Ticket)},
	}
}
