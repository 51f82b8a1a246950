// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

type (
	SessionID    string
	CallID       string
	ConferenceID string
	EndpointID   string
	UnitID       string
)

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

func NewCallID() CallID { return CallID(uuid.NewString()) }

func NewConferenceID() ConferenceID { return ConferenceID(uuid.NewString()) }

func NewEndpointID() EndpointID { return EndpointID(uuid.NewString()) }

// NewUnitID returns the routing identity of a media unit. Calls, conferences,
// endpoints and auxiliary units all share one id space inside a session.
func NewUnitID() UnitID { return UnitID(uuid.NewString()) }

func (id SessionID) String() string    { return string(id) }
func (id CallID) String() string       { return string(id) }
func (id ConferenceID) String() string { return string(id) }
func (id EndpointID) String() string   { return string(id) }
func (id UnitID) String() string       { return string(id) }
