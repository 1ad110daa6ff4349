package stream

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/petrepopescu21/ridemapper/internal/message"
	"github.com/petrepopescu21/ridemapper/internal/session"
)

// MessageHistory serves persisted chat history. Satisfied by *message.Service.
type MessageHistory interface {
	History(ctx context.Context, sessionID string, limit int) ([]message.Message, error)
}

func RegisterRoutes(r fiber.Router, router *Router, history MessageHistory) {
	r.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		client := NewClient()

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				continue
			}
			if reply := router.Handle(context.Background(), client, env); reply != nil {
				select {
				case client.Send <- reply:
				default:
				}
			}
		}

		router.Disconnect(client)
		<-done
	}))

	// Fallback ingress for clients whose persistent connection is down. Same
	// handling as the websocket location:update event.
	r.Post("/sessions/:id/location", func(c *fiber.Ctx) error {
		var body struct {
			ParticipantID string `json:"participant_id"`
			Location      struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		}
		if err := c.BodyParser(&body); err != nil || body.ParticipantID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "participant_id and location required")
		}

		err := router.Location(c.Context(), c.Params("id"), body.ParticipantID, body.Location.Lat, body.Location.Lng)
		if errors.Is(err, session.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session or participant not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
	})

	r.Get("/sessions/:id/messages", func(c *fiber.Ctx) error {
		if history == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "message history unavailable")
		}
		messages, err := history.History(c.Context(), c.Params("id"), c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(messages)
	})
}
