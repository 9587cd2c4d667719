package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/tmplx"
)

// VisitorNamer fills the derived display fields of visitors.
type VisitorNamer struct {
	fallback *tmplx.Template
}

type visitorNameData struct {
	VisitorID string
	Email     string
	Phone     string
}

func NewVisitorNamer(conf *config.Config) (*VisitorNamer, error) {
	return newVisitorNamer(conf.Chat.VisitorNameTemplate)
}

func newVisitorNamer(text string) (*VisitorNamer, error) {
	tmpl, err := tmplx.Parse("visitor_name", text,
		tmplx.WithValidate(visitorNameData{VisitorID: "visitor-0000"}, func(buf *bytes.Buffer) error {
			if strings.TrimSpace(buf.String()) == "" {
				return errors.New("renders empty name")
			}
			return nil
		}))
	if err != nil {
		return nil, fmt.Errorf("parse visitor name template: %w", err)
	}
	return &VisitorNamer{fallback: tmpl}, nil
}

// DisplayName is the visitor's name, or the rendered fallback when the
// visitor never gave one.
func (n *VisitorNamer) DisplayName(v *models.Visitor) string {
	if v.Name != "" && v.Name != models.DefaultVisitorName {
		return v.Name
	}
	name, err := n.fallback.RenderString(visitorNameData{
		VisitorID: v.VisitorID,
		Email:     v.Email,
		Phone:     v.Phone,
	})
	if err != nil || name == "" {
		return models.DefaultVisitorName
	}
	return name
}

func (n *VisitorNamer) Decorate(v *models.Visitor) *models.Visitor {
	if v != nil {
		v.DisplayName = n.DisplayName(v)
	}
	return v
}

func (n *VisitorNamer) Summary(v *models.Visitor) *models.VisitorSummary {
	if v == nil {
		return nil
	}
	return n.Decorate(v).Summary()
}
