package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/radieske/betbot-engine/internal/game-engine/domain"
)

var ErrNotFound = errors.New("not found")

// querier é o que *sqlx.DB e *sqlx.Tx têm em comum
type querier interface {
	sqlx.ExtContext
	Rebind(query string) string
}

// conn executa as queries do motor sobre um DB ou uma transação.
// As queries usam "?" e são convertidas para o bindvar do driver.
type conn struct {
	q        querier
	postgres bool
	inTx     bool
}

type lockMode int

const (
	noLock lockMode = iota
	lockShare
	lockUpdate
)

// lock devolve o sufixo de lock de linha; SQLite serializa via BEGIN IMMEDIATE
func (c conn) lock(m lockMode) string {
	if !c.postgres || !c.inTx {
		return ""
	}
	switch m {
	case lockShare:
		return " FOR SHARE"
	case lockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

func (c conn) get(ctx context.Context, dst any, query string, args ...any) error {
	return sqlx.GetContext(ctx, c.q, dst, c.q.Rebind(query), args...)
}

func (c conn) selectAll(ctx context.Context, dst any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, c.q, dst, c.q.Rebind(query), args...)
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.q.Rebind(query), args...)
}

// execOne executa um UPDATE condicional; nenhuma linha afetada devolve miss
func (c conn) execOne(ctx context.Context, op string, miss error, query string, args ...any) error {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return domain.Resource(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Resource(op, err)
	}
	if n == 0 {
		return miss
	}
	return nil
}

// Store é o repositório do motor de rodadas (contas, rodadas, apostas, ledger)
type Store struct {
	conn
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{
		conn: conn{q: db, postgres: db.DriverName() == "postgres"},
		db:   db,
	}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Tx expõe as mesmas operações do Store dentro de uma transação
type Tx struct {
	conn
}

// WithTx executa fn em uma transação; erro em fn desfaz tudo
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqltx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Resource("begin tx", err)
	}
	defer sqltx.Rollback()

	if err := fn(&Tx{conn: conn{q: sqltx, postgres: s.postgres, inTx: true}}); err != nil {
		return err
	}

	if err := sqltx.Commit(); err != nil {
		return domain.Resource("commit tx", err)
	}
	return nil
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// notFound traduz sql.ErrNoRows para miss e embrulha o resto como ResourceError
func notFound(err error, miss error, op string) error {
	if isNoRows(err) {
		return miss
	}
	return domain.Resource(op, err)
}
