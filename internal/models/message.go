package models

import (
	"errors"
	"time"
)

// Role tags the origin of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleBot       Role = "bot"
)

// MsgType discriminates how a message is rendered.
type MsgType string

const (
	MsgTypeText MsgType = "text"
	MsgTypeFile MsgType = "file"
)

var (
	ErrMissingID     = errors.New("message id is required")
	ErrInvalidRole   = errors.New("invalid message role")
	ErrInvalidType   = errors.New("invalid msgtype")
	ErrFileMetadata  = errors.New("file metadata is only allowed, and fileName required, when msgtype is file")
	ErrMissingRoomID = errors.New("room id is required")
)

// ChatMessage is the unit that is persisted and broadcast.
// Timestamp is Unix milliseconds assigned by the server at ingestion and
// only drives expiry; display order is arrival order.
type ChatMessage struct {
	RoomID    string    `json:"-" gorm:"primaryKey;type:varchar(64)"`
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	Content   string    `json:"content" gorm:"type:text"`
	User      string    `json:"user" gorm:"type:varchar(255)"`
	Role      Role      `json:"role" gorm:"type:varchar(20)"`
	Timestamp int64     `json:"timestamp" gorm:"index"`
	MsgType   MsgType   `json:"msgtype,omitempty" gorm:"column:msgtype;type:varchar(20)"`
	FileName  string    `json:"fileName,omitempty" gorm:"type:varchar(255)"`
	FileType  string    `json:"fileType,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"-"`
}

// TableName pins the table name independently of the struct name.
func (ChatMessage) TableName() string { return "chat_messages" }

// Validate checks the fields a client must supply.
func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	switch m.Role {
	case RoleUser, RoleAssistant, RoleBot:
	default:
		return ErrInvalidRole
	}
	switch m.MsgType {
	case "", MsgTypeText:
		if m.FileName != "" || m.FileType != "" {
			return ErrFileMetadata
		}
	case MsgTypeFile:
		if m.FileName == "" {
			return ErrFileMetadata
		}
	default:
		return ErrInvalidType
	}
	return nil
}

// IsFile reports whether the message carries a file reference or embedded file.
func (m *ChatMessage) IsFile() bool {
	return m.MsgType == MsgTypeFile
}
