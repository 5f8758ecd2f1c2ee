package ureport

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jaxxstorm/ureport/internal/model"
	"go.uber.org/zap"
)

const (
	AttachBug     = "RHBZ"
	AttachEmail   = "email"
	AttachComment = "comment"
)

type attachment struct {
	BTHash string `json:"bthash"`
	Type   string `json:"type"`
	Data   string `json:"data"`
}

// Attach associates payload of the given kind with the report identified by
// bthash. Only a result of exactly "true" counts as success.
func (c *Client) Attach(ctx context.Context, bthash, kind, payload string) (bool, error) {
	body, err := json.Marshal(attachment{BTHash: bthash, Type: kind, Data: payload})
	if err != nil {
		return false, err
	}
	reply, err := c.Post(ctx, body, AttachPath)
	if err != nil {
		return false, err
	}

	url := JoinURL(c.cfg.URL, AttachPath)
	switch resp := reply.Response.(type) {
	case *model.ErrorResponse:
		serr := &ServerError{URL: url, Text: resp.Text}
		c.logger.Error("attachment failed", zap.Error(serr))
		return false, serr
	case *model.ResultResponse:
		if resp.Value != "true" {
			return false, &AttachRejectedError{URL: url, Value: resp.Value}
		}
		c.logger.Info("attachment accepted", zap.String("bthash", bthash), zap.String("type", kind))
		return true, nil
	}
	return false, &ProtocolError{URL: url, Reason: "missing response"}
}

func (c *Client) AttachBug(ctx context.Context, bthash string, bugID int) (bool, error) {
	return c.Attach(ctx, bthash, AttachBug, strconv.Itoa(bugID))
}

func (c *Client) AttachEmail(ctx context.Context, bthash, email string) (bool, error) {
	return c.Attach(ctx, bthash, AttachEmail, email)
}

func (c *Client) AttachComment(ctx context.Context, bthash, comment string) (bool, error) {
	return c.Attach(ctx, bthash, AttachComment, comment)
}
