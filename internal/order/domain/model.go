package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderStatus represents lifecycle states for a paid video request.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusDisputed  OrderStatus = "disputed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order records one paid video-message request and its revenue split.
// Created on a successful charge, mutated on refund/dispute, never deleted.
type Order struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	PaymentReferenceID string            `gorm:"type:text;not null;uniqueIndex"`
	CreatorID          string            `gorm:"type:text;not null;index"`
	CustomerID         string            `gorm:"type:text;not null;index"`
	Amount             int64             `gorm:"not null"`
	CreatorEarnings    int64             `gorm:"not null"`
	PlatformFee        int64             `gorm:"not null"`
	Currency           string            `gorm:"type:text;not null"`
	Status             OrderStatus       `gorm:"type:text;not null"`
	VideoRequestID     *snowflake.ID     `gorm:""`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt          time.Time         `gorm:"not null"`
	UpdatedAt          time.Time         `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// VideoRequestStatus mirrors the fulfillment record's lifecycle states this
// service is allowed to touch.
type VideoRequestStatus string

const (
	VideoRequestStatusCancelled VideoRequestStatus = "cancelled"
)

type VideoRequest struct {
	ID              snowflake.ID       `gorm:"primaryKey"`
	CreatorID       string             `gorm:"type:text;not null;index"`
	CustomerID      string             `gorm:"type:text;not null;index"`
	Status          VideoRequestStatus `gorm:"type:text;not null"`
	RejectionReason *string            `gorm:"type:text"`
	CreatedAt       time.Time          `gorm:"not null"`
	UpdatedAt       time.Time          `gorm:"not null"`
}

func (VideoRequest) TableName() string { return "video_requests" }
