package cockroach

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"github.com/btcsuite/btcutil/base58"
	"github.com/jackc/pgx/v5"
	"github.com/vmihailenco/msgpack/v5"
)

// notificationsPageSize applies when neither first nor last is given.
const notificationsPageSize = 20

// keysetCursor is the position of a row in a newest-first listing
// ordered by (created_at, id). Clients get it as an opaque base58 string.
type keysetCursor struct {
	ID        string    `msgpack:"i"`
	CreatedAt time.Time `msgpack:"t"`
}

func encodeCursor(c keysetCursor) (string, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("msgpack marshal cursor: %w", err)
	}

	return base58.Encode(b), nil
}

func decodeCursor(field, s string) (keysetCursor, error) {
	var c keysetCursor

	b := base58.Decode(s)
	if len(b) == 0 {
		return c, errs.NewInvalidArgumentError(field, "invalid cursor")
	}

	if err := msgpack.Unmarshal(b, &c); err != nil || c.ID == "" {
		return c, errs.NewInvalidArgumentError(field, "invalid cursor")
	}

	return c, nil
}

// keysetPage is a decoded [types.PageArgs].
// first/after walk towards older rows, last/before towards newer ones.
type keysetPage struct {
	first  *uint
	after  *keysetCursor
	last   *uint
	before *keysetCursor
}

func newKeysetPage(in types.PageArgs) (keysetPage, error) {
	out := keysetPage{first: in.First, last: in.Last}

	if in.After != nil {
		after, err := decodeCursor("After", *in.After)
		if err != nil {
			return out, err
		}

		out.after = &after
	}

	if in.Before != nil {
		before, err := decodeCursor("Before", *in.Before)
		if err != nil {
			return out, err
		}

		out.before = &before
	}

	return out, nil
}

func (p keysetPage) backwards() bool {
	return p.last != nil || p.before != nil
}

// size of the page the caller asked for.
func (p keysetPage) size() uint {
	n := p.first
	if p.backwards() {
		n = p.last
	}
	if n == nil {
		return notificationsPageSize
	}
	return *n
}

// clauses returns the WHERE, ORDER BY and LIMIT of the query over table.
// One extra row is fetched to know whether another page follows.
// filters must already contain at least one condition.
func (p keysetPage) clauses(filters []string, table string, args pgx.StrictNamedArgs) string {
	key := fmt.Sprintf("(%s.created_at, %s.id)", table, table)

	if p.after != nil {
		filters = append(filters, key+" < (@after_created_at, @after_id)")
		args["after_created_at"] = p.after.CreatedAt
		args["after_id"] = p.after.ID
	}

	if p.before != nil {
		filters = append(filters, key+" > (@before_created_at, @before_id)")
		args["before_created_at"] = p.before.CreatedAt
		args["before_id"] = p.before.ID
	}

	dir := "DESC"
	if p.backwards() {
		dir = "ASC"
	}

	var sb strings.Builder
	sb.WriteString(where(filters))
	fmt.Fprintf(&sb, " ORDER BY %s.created_at %s, %s.id %s LIMIT @page_limit", table, dir, table, dir)
	args["page_limit"] = p.size() + 1

	return sb.String()
}

// fillPage trims the extra row fetched by [keysetPage.clauses], puts
// backwards pages back in newest-first order and sets the page info.
func fillPage[T any](page *types.Page[T], p keysetPage, cursorOf func(T) keysetCursor) error {
	size := p.size()
	more := uint(len(page.Items)) > size
	if more {
		page.Items = page.Items[:size]
	}

	if p.backwards() {
		slices.Reverse(page.Items)
		page.PageInfo.HasPreviousPage = more
		page.PageInfo.HasNextPage = p.before != nil
	} else {
		page.PageInfo.HasNextPage = more
		page.PageInfo.HasPreviousPage = p.after != nil
	}

	if len(page.Items) == 0 {
		return nil
	}

	start, err := encodeCursor(cursorOf(page.Items[0]))
	if err != nil {
		return fmt.Errorf("encode start cursor: %w", err)
	}

	end, err := encodeCursor(cursorOf(page.Items[len(page.Items)-1]))
	if err != nil {
		return fmt.Errorf("encode end cursor: %w", err)
	}

	page.PageInfo.StartCursor = &start
	page.PageInfo.EndCursor = &end

	return nil
}
