package http

import (
	"strconv"

	"outreach_server/core/domain"
	"outreach_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

const defaultPageLimit = 100

// PaginationParams holds list paging parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// GetPaginationParams reads limit and offset. Non-numeric or non-positive
// limits fall back to the default; negative offsets become zero.
func GetPaginationParams(c *fiber.Ctx) PaginationParams {
	limit := queryInt(c, "limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// identifierParam parses the :identifier route segment, which arrives still
// percent-encoded.
func identifierParam(c *fiber.Ctx) (domain.Identifier, error) {
	id, err := domain.ParseIdentifier(c.Params("identifier"))
	if err != nil {
		return domain.Identifier{}, apperr.BadRequest("Invalid profile identifier")
	}
	return id, nil
}

// parseBody decodes a JSON body, treating an empty body as an empty object.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dest); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}
