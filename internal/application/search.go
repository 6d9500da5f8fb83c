package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/internal/domain/entity"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
)

const esTimeout = 3 * time.Second

func (s *Service) searchEnabled() bool {
	return s.ES != nil && s.ESUsersIndex != ""
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if !s.searchEnabled() {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"avatar":     u.Avatar,
		"bio":        u.Bio,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return
	}
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		helpers.LogWarn(s.Logger, "es index failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		helpers.LogWarn(s.Logger, "es index response error", nil, logrus.Fields{"user_id": u.ID, "status": res.Status()})
	}
}

func (s *Service) deleteUserDoc(ctx context.Context, id string) {
	if !s.searchEnabled() {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		helpers.LogWarn(s.Logger, "es delete failed", err, logrus.Fields{"user_id": id})
		return
	}
	defer func() { _ = res.Body.Close() }()
	// 404 means the document was never indexed
	if res.IsError() && res.StatusCode != 404 {
		helpers.LogWarn(s.Logger, "es delete response error", nil, logrus.Fields{"user_id": id, "status": res.Status()})
	}
}

// SearchUsers performs a simple multi_match search on email and name.
// Without a configured index it returns no hits.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if !s.searchEnabled() {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
