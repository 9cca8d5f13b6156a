package web

import (
	"github.com/gofiber/fiber/v2"

	"WeatherChat/internal/chatbot"
	"WeatherChat/internal/session"
	"WeatherChat/internal/weather"
)

type chatRequest struct {
	Message string `json:"message" form:"message" validate:"required,max=4000"`
}

type locationRequest struct {
	Location string `json:"location" form:"location" validate:"required,max=120"`
}

type cropRequest struct {
	Crop string `json:"crop" form:"crop" validate:"max=120"`
}

type sessionView struct {
	ID       string            `json:"id"`
	Backend  string            `json:"backend"`
	Location string            `json:"location"`
	Crop     string            `json:"crop"`
	Messages []session.Message `json:"messages"`
}

type chatResponse struct {
	Reply        string            `json:"reply"`
	Weather      *weather.Snapshot `json:"weather,omitempty"`
	WeatherError string            `json:"weatherError,omitempty"`
	Messages     []session.Message `json:"messages"`
}

func viewOf(sess *session.Session) sessionView {
	return sessionView{
		ID:       sess.ID,
		Backend:  sess.Backend,
		Location: sess.Location(),
		Crop:     sess.Crop(),
		Messages: sess.History(),
	}
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// statusFor maps a turn error onto an HTTP status.
func statusFor(err error) int {
	switch chatbot.ErrorKind(err) {
	case "empty_input":
		return fiber.StatusBadRequest
	case "rate_limit":
		return fiber.StatusTooManyRequests
	case "invalid_location":
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadGateway
	}
}

func (s *Server) getSession(c *fiber.Ctx) error {
	return c.JSON(viewOf(currentSession(c)))
}

func (s *Server) resetSession(c *fiber.Ctx) error {
	old := currentSession(c)
	s.registry.Remove(old.ID)

	sess := s.registry.Create()
	sess.SetLocation(old.Location())
	sess.SetCrop(old.Crop())
	s.setCookie(c, sess.ID)
	s.logger.Info("session reset", "old_session_id", old.ID, "session_id", sess.ID)
	return c.JSON(viewOf(sess))
}

func (s *Server) getHistory(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": currentSession(c).History()})
}

func (s *Server) getWeather(c *fiber.Ctx) error {
	snap, err := s.bot.Weather(c.UserContext(), currentSession(c))
	if snap == nil && err != nil {
		return fiber.NewError(statusFor(err), chatbot.UserMessage(err))
	}
	if snap == nil {
		return fiber.NewError(fiber.StatusNotFound, "no location set")
	}
	return c.JSON(snap)
}

func (s *Server) postChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess := currentSession(c)
	result, err := s.bot.Turn(c.UserContext(), sess, req.Message)
	if err != nil {
		return fiber.NewError(statusFor(err), chatbot.UserMessage(err))
	}

	resp := chatResponse{
		Reply:    result.Reply,
		Weather:  result.Weather,
		Messages: sess.History(),
	}
	if result.WeatherErr != nil {
		resp.WeatherError = chatbot.UserMessage(result.WeatherErr)
	}
	return c.JSON(resp)
}

func (s *Server) postLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sess := currentSession(c)
	s.bot.SetLocation(sess, req.Location)
	return c.JSON(viewOf(sess))
}

func (s *Server) postCrop(c *fiber.Ctx) error {
	var req cropRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sess := currentSession(c)
	s.bot.SetCrop(sess, req.Crop)
	return c.JSON(viewOf(sess))
}
