package sqlstore

import (
	"time"

	"intake/internal/model/conversation"
)

// UserModel users 表
type UserModel struct {
	UserID    string    `gorm:"primaryKey;size:36;column:user_id"`
	CreatedAt time.Time `gorm:"not null;index:idx_users_created_at;column:created_at"`
}

func (UserModel) TableName() string { return "users" }

// ConversationModel conversations 表
type ConversationModel struct {
	ConversationID string    `gorm:"primaryKey;size:36;column:conversation_id"`
	UserID         string    `gorm:"size:36;not null;index:idx_conversations_user_updated,priority:1;column:user_id"`
	User           UserModel `gorm:"foreignKey:UserID;references:UserID"`
	LanguageCode   string    `gorm:"size:16;not null;column:language_code"`
	InterviewStage int       `gorm:"not null;default:0;column:interview_stage"`
	MessageSeq     int64     `gorm:"not null;default:0;column:message_seq"`
	StartedAt      time.Time `gorm:"not null;column:started_at"`
	LastUpdatedAt  time.Time `gorm:"not null;index:idx_conversations_user_updated,priority:2,sort:desc;column:last_updated_at"`
}

func (ConversationModel) TableName() string { return "conversations" }

// MessageModel messages 表
type MessageModel struct {
	MessageID      string            `gorm:"primaryKey;size:36;column:message_id"`
	ConversationID string            `gorm:"size:36;not null;uniqueIndex:idx_messages_conversation_seq,priority:1;column:conversation_id"`
	Conversation   ConversationModel `gorm:"foreignKey:ConversationID;references:ConversationID"`
	Seq            int64             `gorm:"not null;uniqueIndex:idx_messages_conversation_seq,priority:2;column:seq"`
	Role           string            `gorm:"size:20;not null;column:role"`
	Content        string            `gorm:"type:text;not null;column:content"`
	AudioURL       *string           `gorm:"size:512;column:audio_url"`
	Timestamp      time.Time         `gorm:"not null;column:timestamp"`
}

func (MessageModel) TableName() string { return "messages" }

func (m *ConversationModel) ToDomain() *conversation.Conversation {
	return &conversation.Conversation{
		ID:             m.ConversationID,
		UserID:         m.UserID,
		LanguageCode:   m.LanguageCode,
		InterviewStage: conversation.Stage(m.InterviewStage),
		MessageSeq:     m.MessageSeq,
		StartedAt:      m.StartedAt,
		LastUpdatedAt:  m.LastUpdatedAt,
	}
}

func (m *MessageModel) ToDomain() *conversation.Message {
	msg := &conversation.Message{
		ID:             m.MessageID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
	}
	if m.AudioURL != nil {
		msg.AudioURL = *m.AudioURL
	}
	return msg
}
