package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Kirito123l/emission-agent/pkg/utils"
)

// errorResponse is the JSON error body for non-2xx responses.
type errorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func titleFrom(content string) string {
	return utils.Truncate(content, 50)
}

// userID extracts the caller identity header. Every data route is scoped
// to it.
func userID(c *fiber.Ctx) string {
	return c.Get("X-User-ID")
}

func requireUser(c *fiber.Ctx) (string, error) {
	uid := userID(c)
	if uid == "" {
		return "", c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "missing X-User-ID header"})
	}
	return uid, nil
}

// chatInput is the parsed multipart chat form.
type chatInput struct {
	message   string
	sessionID string
	upload    *upload
}

type upload struct {
	filename string
	data     []byte
}

func parseChatForm(c *fiber.Ctx) (*chatInput, error) {
	in := &chatInput{
		message:   c.FormValue("message"),
		sessionID: c.FormValue("session_id"),
	}

	fh, err := c.FormFile("file")
	if err == nil && fh != nil {
		data, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		in.upload = &upload{filename: fh.Filename, data: data}
	}

	if in.message == "" && in.upload == nil {
		return nil, fmt.Errorf("message or file required")
	}
	return in, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// resolveSession finds the caller's session or creates a fresh one.
func (s *Server) resolveSession(uid, sessionID string) *storedSession {
	if sessionID != "" {
		if sess := s.store.session(uid, sessionID); sess != nil {
			return sess
		}
	}
	return s.store.createSession(uid)
}

// handleChatStream answers a chat turn as newline-delimited JSON events.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	in, err := parseChatForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	sess := s.resolveSession(uid, in.sessionID)
	turn := s.respond(uid, in)
	s.record(sess, in, turn)

	c.Set("Content-Type", "application/x-ndjson")

	// io.Pipe + SetBodyStream gives per-line chunked writes with
	// backpressure from the client, rather than buffering the whole
	// response in fasthttp's internal pipe.
	pr, pw := io.Pipe()
	go s.writeTurnEvents(pw, sess.ID, turn)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// writeTurnEvents emits the canned event sequence for one assistant turn.
func (s *Server) writeTurnEvents(pw *io.PipeWriter, sessionID string, turn *assistantTurn) {
	defer pw.Close()

	write := func(event map[string]any) bool {
		line, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("marshaling stream event", "error", err)
			return false
		}
		if _, err := pw.Write(append(line, '\n')); err != nil {
			// Client went away.
			return false
		}
		return true
	}

	if !write(map[string]any{"type": "heartbeat"}) {
		return
	}
	for _, status := range turn.statuses {
		if !write(map[string]any{"type": "status", "content": status}) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	for _, token := range tokenize(turn.text) {
		if !write(map[string]any{"type": "text", "content": token}) {
			return
		}
	}

	if turn.chart != nil {
		if !write(map[string]any{"type": "chart", "content": turn.chart}) {
			return
		}
	}
	if turn.table != nil {
		if !write(map[string]any{"type": "table", "content": turn.table}) {
			return
		}
	}

	done := map[string]any{
		"type":       "done",
		"session_id": sessionID,
		"message_id": turn.messageID,
	}
	if turn.fileID != "" {
		done["file_id"] = turn.fileID
	}
	if turn.download != nil {
		done["download_file"] = turn.download
	}
	write(done)
}

// tokenize splits reply text into word-sized streaming chunks.
func tokenize(text string) []string {
	var tokens []string
	start := 0
	for i, r := range text {
		if r == ' ' || r == '\n' {
			tokens = append(tokens, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// handleChat answers a chat turn as a single JSON body.
func (s *Server) handleChat(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	in, err := parseChatForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	sess := s.resolveSession(uid, in.sessionID)
	turn := s.respond(uid, in)
	s.record(sess, in, turn)

	resp := fiber.Map{
		"reply":      turn.text,
		"session_id": sess.ID,
		"success":    true,
		"message_id": turn.messageID,
	}
	switch {
	case turn.chart != nil:
		resp["data_type"] = "chart"
		resp["chart_data"] = turn.chart
	case turn.table != nil:
		resp["data_type"] = "table"
		resp["table_data"] = turn.table
	}
	if turn.fileID != "" {
		resp["file_id"] = turn.fileID
	}
	if turn.download != nil {
		resp["download_file"] = turn.download
	}

	return c.JSON(resp)
}

// record persists the user and assistant turns into the session.
func (s *Server) record(sess *storedSession, in *chatInput, turn *assistantTurn) {
	userMsg := storedMessage{
		Role:      "user",
		Content:   in.message,
		CreatedAt: time.Now().UTC(),
	}

	assistantMsg := storedMessage{
		Role:         "assistant",
		Content:      turn.text,
		ChartData:    turn.chart,
		TableData:    turn.table,
		FileID:       turn.fileID,
		DownloadFile: turn.download,
		MessageID:    turn.messageID,
		CreatedAt:    time.Now().UTC(),
	}
	switch {
	case turn.chart != nil:
		assistantMsg.DataType = "chart"
	case turn.table != nil:
		assistantMsg.DataType = "table"
	}

	s.store.appendMessages(sess, userMsg, assistantMsg)
}

func (s *Server) handleNewSession(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	sess := s.store.createSession(uid)
	return c.JSON(fiber.Map{"session_id": sess.ID, "success": true})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	sessions := s.store.listSessions(uid)
	out := make([]fiber.Map, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, fiber.Map{
			"session_id":    sess.ID,
			"title":         sess.Title,
			"created_at":    sess.CreatedAt.Format(time.RFC3339),
			"updated_at":    sess.UpdatedAt.Format(time.RFC3339),
			"message_count": len(sess.Messages),
		})
	}
	return c.JSON(fiber.Map{"sessions": out, "success": true})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	sess := s.store.session(uid, c.Params("id"))
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"messages":   sess.Messages,
		"success":    true,
	})
}

func (s *Server) handleRenameSession(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || body.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "title required"})
	}

	if !s.store.renameSession(uid, c.Params("id"), body.Title) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	if !s.store.deleteSession(uid, c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

const previewRowLimit = 20

func (s *Server) handleFilePreview(c *fiber.Ctx) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "file required"})
	}

	data, err := readUpload(fh)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	columns, rows, err := parseCSV(data, previewRowLimit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: fmt.Sprintf("parsing file: %v", err)})
	}

	return c.JSON(fiber.Map{
		"filename":  fh.Filename,
		"columns":   columns,
		"rows":      rows,
		"row_count": len(rows),
		"success":   true,
	})
}

// parseCSV reads header plus up to limit rows as column-keyed maps.
func parseCSV(data []byte, limit int) ([]string, []map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	rows := make([]map[string]any, 0, limit)
	for len(rows) < limit {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func (s *Server) handleDownloadFile(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	f := s.store.file(uid, c.Params("file_id"))
	if f == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "file not found"})
	}
	return sendFile(c, f)
}

func (s *Server) handleDownloadMessageFile(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	sess := s.store.session(uid, c.Params("session_id"))
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	messageID := c.Params("message_id")
	for _, msg := range sess.Messages {
		if msg.MessageID == messageID && msg.FileID != "" {
			if f := s.store.file(uid, msg.FileID); f != nil {
				return sendFile(c, f)
			}
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "no file for message"})
}

func (s *Server) handleDownloadByName(c *fiber.Ctx) error {
	uid, err := requireUser(c)
	if err != nil {
		return err
	}

	f := s.store.fileByName(uid, c.Params("filename"))
	if f == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "file not found"})
	}
	return sendFile(c, f)
}

func sendFile(c *fiber.Ctx, f *storedFile) error {
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	return c.Send(f.Data)
}

func (s *Server) handleTemplate(c *fiber.Ctx) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	var name string
	var data []byte
	switch c.Params("type") {
	case "route":
		name = "route_template.csv"
		data = routeTemplate
	case "fleet":
		name = "fleet_template.csv"
		data = fleetTemplate
	default:
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "unknown template type"})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "success": true})
}

var routeTemplate = []byte(`segment_id,distance_km,avg_speed_kph,road_type
1,2.5,30,urban
2,12.0,80,highway
3,1.2,20,urban
`)

var fleetTemplate = []byte(`vehicle_id,vehicle_type,model_year,fuel,annual_km
V001,light_truck,2019,diesel,45000
V002,passenger_car,2022,gasoline,15000
`)
