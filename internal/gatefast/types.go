package gatefast

// Embed is the structured body of one leaderboard entry message.
type Embed struct {
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Color        int          `json:"color"`
	Fields       []EmbedField `json:"fields,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is an inbound command frame delivered over the websocket.
type Message struct {
	Channel string   `json:"channel_id"`
	Guild   string   `json:"guild_id"`
	UserID  string   `json:"user_id"`
	Roles   []string `json:"role_ids,omitempty"`
	Text    string   `json:"content"`
}

// HistoryEntry is one message observed in a channel's recent history.
type HistoryEntry struct {
	MsgID  string `json:"message_id"`
	Pinned bool   `json:"pinned,omitempty"`
	Embed  *Embed `json:"embed,omitempty"`
}

// GatewayConfig is returned by the gateway's /config probe endpoint.
type GatewayConfig struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	WSPath   string `json:"ws_path"`
	MsgRate  int    `json:"message_rate"`
}

type embedRequest struct {
	Embed Embed `json:"embed"`
}

type textRequest struct {
	Content string `json:"content"`
}

type fileRequest struct {
	Name string `json:"name"`
	Data string `json:"data_base64"`
}

type sendResponse struct {
	MsgID string `json:"message_id"`
}

type historyResponse struct {
	Messages []HistoryEntry `json:"messages"`
}

type purgeRequest struct {
	Limit int `json:"limit"`
}

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

type fetchResponse struct {
	MsgID  string `json:"message_id"`
	Pinned bool   `json:"pinned,omitempty"`
	Embed  *Embed `json:"embed,omitempty"`
}

// WebSocketState mirrors the connection lifecycle of the ingress socket.
type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)
