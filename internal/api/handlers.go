package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freeseek/freeseek/internal/auth"
	"github.com/freeseek/freeseek/internal/core"
	"github.com/freeseek/freeseek/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
	uploadDir   string
}

func NewAPIHandler(cs *core.ChatService, uploadDir string) *APIHandler {
	return &APIHandler{chatService: cs, uploadDir: uploadDir}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := auth.ValidateJWT(tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.chatService.GetUserByID(userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %d: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	_, err = h.chatService.CreateUser(req.Username, req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			respondError(w, http.StatusBadRequest, "User already exists")
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.chatService.GetUserByUsername(req.Username)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Username, err)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Missing user and wrong password produce the same response so login
	// is not a username-existence oracle.
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type CreateChatRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateChatRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	chat, err := h.chatService.CreateChat(userID, req.Title)
	if err != nil {
		log.Printf("Error creating chat for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	respondJSON(w, http.StatusOK, chat)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	chats, err := h.chatService.GetChats(userID)
	if err != nil {
		log.Printf("Error listing chats for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	respondJSON(w, http.StatusOK, chats)
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	chatID := chi.URLParam(r, "chatID")

	chat, err := h.chatService.GetChatDetails(chatID, userID)
	if err != nil {
		if errors.Is(err, core.ErrChatNotFound) {
			respondError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("Error getting chat details for user %d, chat %s: %v", userID, chatID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get chat details")
		return
	}
	respondJSON(w, http.StatusOK, chat)
}

type RenameChatRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) RenameChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	chatID := chi.URLParam(r, "chatID")

	var req RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.chatService.RenameChat(chatID, userID, strings.TrimSpace(req.Title)); err != nil {
		if errors.Is(err, core.ErrChatNotFound) {
			respondError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("Error renaming chat %s for user %d: %v", chatID, userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to rename chat")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Chat renamed successfully"})
}

// StreamNewChatHandler creates a chat plus its first message, then streams
// the assistant response. Each SSE frame carries the chat id so the client
// can swap its temporary identity for the durable one.
func (h *APIHandler) StreamNewChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	content, contentType, err := h.parseMessageBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := h.chatService.CreateChatWithFirstMessage(userID, content, contentType)
	if err != nil {
		log.Printf("Error creating chat for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	h.relayTurn(w, r, chat, true)
}

// StreamMessageHandler appends a message to an existing chat and streams
// the assistant response.
func (h *APIHandler) StreamMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	chatID := chi.URLParam(r, "chatID")

	content, contentType, err := h.parseMessageBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := h.chatService.AppendUserMessage(chatID, userID, content, contentType)
	if err != nil {
		if errors.Is(err, core.ErrChatNotFound) {
			respondError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("Error posting message for user %d, chat %s: %v", userID, chatID, err)
		respondError(w, http.StatusInternalServerError, "Failed to post message")
		return
	}

	h.relayTurn(w, r, chat, false)
}

// relayTurn forwards completion deltas as SSE frames. Headers are written
// lazily on the first delta: a turn that fails before producing output can
// still be reported with a proper error status, while a failure mid-stream
// can only be signaled by closing the connection early.
func (h *APIHandler) relayTurn(w http.ResponseWriter, r *http.Request, chat *store.Chat, includeChatID bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	headersSent := false
	sink := func(delta string) error {
		if !headersSent {
			writeSSEHeaders(w)
			headersSent = true
		}
		frame := map[string]string{"content": delta}
		if includeChatID {
			frame["chatId"] = chat.ID
		}
		if err := writeSSEFrame(w, frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if _, err := h.chatService.StreamTurn(r.Context(), chat, sink); err != nil {
		log.Printf("Streaming turn failed for chat %s: %v", chat.ID, err)
		if !headersSent {
			respondError(w, http.StatusBadGateway, "Failed to generate response")
			return
		}
		// After headers the only failure signal left is an abnormal close.
		// ErrAbortHandler makes net/http drop the connection without the
		// terminal chunk, so clients read an unexpected EOF instead of a
		// clean end of stream.
		panic(http.ErrAbortHandler)
	}

	if !headersSent {
		// Empty completion: still announce the stream before closing.
		writeSSEHeaders(w)
		flusher.Flush()
	}
}
