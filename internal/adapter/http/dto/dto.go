package dto

// RegisterRequest is the request body for client registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for client login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	ClientID string `json:"client_id"`
	Token    string `json:"token"`
	Expiry   int64  `json:"expiry"` // Unix timestamp
}

// CreateCardRequest is the request body for admin card issuance.
type CreateCardRequest struct {
	OwnerID        string  `json:"owner_id" binding:"required,uuid"`
	InitialBalance *string `json:"initial_balance,omitempty" binding:"omitempty,money"`
}

// SetStatusRequest is the request body for an admin status change.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,card_status"`
}

// SetLockedRequest is the request body for locking or unlocking a client.
type SetLockedRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

// TransferRequest is the request body for a transfer between own cards.
type TransferRequest struct {
	SourceCardID string `json:"source_card_id" binding:"required,uuid"`
	TargetCardID string `json:"target_card_id" binding:"required,uuid"`
	Amount       string `json:"amount" binding:"required,money"`
}

// ListCardsQuery holds the query parameters of the owner card listing.
type ListCardsQuery struct {
	OwnerID string `form:"owner_id" binding:"omitempty,uuid"`
	Page    int    `form:"page" binding:"omitempty,min=0"`
	Size    int    `form:"size" binding:"omitempty,min=1,max=100"`
	Query   string `form:"query" binding:"omitempty,max=16,digits"`
}

// TransferResponse is the response body of a committed transfer.
type TransferResponse struct {
	ID            string `json:"id"`
	SourceCardID  string `json:"source_card_id"`
	TargetCardID  string `json:"target_card_id"`
	Amount        string `json:"amount"`
	SourceBalance string `json:"source_balance"`
	TargetBalance string `json:"target_balance"`
	CreatedAt     string `json:"created_at"`
}

// ExpireResponse reports how many cards an expiry sweep changed.
type ExpireResponse struct {
	Expired int `json:"expired"`
}

// ClientResponse is the admin view of a client.
type ClientResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Locked    bool   `json:"locked"`
	CreatedAt string `json:"created_at"`
}
