// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"ufit/internal/middleware"
	"ufit/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// wsTicketTTL bounds how long an issued ticket stays redeemable.
const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /api/ws/ticket.
// Issues a short-lived single-use ticket so browser WebSocket clients never
// put a long-lived JWT in a URL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "WebSocket tickets unavailable",
		})
	}

	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key,
		strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue ticket",
		})
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}
		uid, ok := userIDVal.(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket Notification: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		defer s.hub.UnregisterClient(client)

		// Start pumps
		go client.WritePump()
		client.ReadPump()
	})
}

// WebSocketSupportHandler returns a websocket handler for support chat.
// Clients join a session to receive its events and may post messages over
// the socket; posting goes through the same service path as the HTTP route.
func (s *Server) WebSocketSupportHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket Support: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.supportHub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.supportHub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket Support: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		role, roleErr := s.roleOfUserID(ctx, userID)
		if roleErr != nil {
			log.Printf("WebSocket Support: Failed to load role for user %d: %v", userID, roleErr)
			s.supportHub.UnregisterClient(client)
			_ = conn.Close()
			return
		}
		isModerator := role.CanModerate()

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var incomingMsg map[string]interface{}
			if err := json.Unmarshal(message, &incomingMsg); err != nil {
				log.Printf("WebSocket Support: Invalid message format from user %d", userID)
				return
			}

			msgType, ok := incomingMsg["type"].(string)
			if !ok {
				return
			}

			switch msgType {
			case "join":
				if sessionIDFloat, ok := incomingMsg["session_id"].(float64); ok {
					sessionID := uint(sessionIDFloat)
					if s.canWatchSession(ctx, userID, isModerator, sessionID) {
						s.supportHub.JoinSession(userID, sessionID)

						response := map[string]interface{}{
							"type":       "joined",
							"session_id": sessionID,
						}
						if respJSON, err := json.Marshal(response); err == nil {
							c.TrySend(respJSON)
						}
					}
				}

			case "leave":
				if sessionIDFloat, ok := incomingMsg["session_id"].(float64); ok {
					s.supportHub.LeaveSession(userID, uint(sessionIDFloat))
				}

			case "message":
				content, _ := incomingMsg["content"].(string)
				if content == "" {
					return
				}

				// Rate limit messages - same as HTTP (15 per minute)
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "support_message", id, 15, time.Minute)
				if !allowed {
					response := map[string]string{
						"type":    "error",
						"message": "Rate limit exceeded. Please wait a moment.",
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
					return
				}

				if _, err := s.supportService.PostMessage(ctx, userID, content, isModerator); err != nil {
					response := map[string]string{
						"type":    "error",
						"message": err.Error(),
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
				}
				// Delivery happens through the Redis subscriber wiring.
			}
		}

		// Send welcome message
		welcome := map[string]interface{}{
			"type":    "connected",
			"user_id": userID,
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// canWatchSession reports whether a user may subscribe to a session's events.
func (s *Server) canWatchSession(ctx context.Context, userID uint, isModerator bool, sessionID uint) bool {
	if isModerator {
		return true
	}
	session, err := s.supportRepo.GetByID(ctx, sessionID)
	if err != nil {
		return false
	}
	return session.UserID == userID
}
