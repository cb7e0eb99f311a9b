package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robolink/robolink"
	"github.com/uptrace/bun"
)

type Robot struct {
	bun.BaseModel `bun:"table:robot"`

	Id            int64     `bun:",pk,autoincrement"`
	Name          string    `bun:",notnull,unique"`
	Host          string    `bun:",notnull"`
	OwnerAddress  string    `bun:",notnull"`
	WalletAddress string    `bun:",notnull"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func (r Robot) ToDomain() robolink.Robot {
	return robolink.Robot{
		Name:          robolink.RobotIdentity(r.Name),
		Host:          r.Host,
		OwnerAddress:  r.OwnerAddress,
		WalletAddress: r.WalletAddress,
		CreatedAt:     r.CreatedAt,
	}
}

type RobotStore struct {
	DB *bun.DB
}

var _ robolink.RobotStore = (*RobotStore)(nil)

func (s *RobotStore) Register(ctx context.Context, robot robolink.Robot) (robolink.Robot, error) {
	model := &Robot{
		Name:          string(robot.Name),
		Host:          robot.Host,
		OwnerAddress:  robot.OwnerAddress,
		WalletAddress: robot.WalletAddress,
	}
	res, err := s.DB.NewInsert().
		Model(model).
		On(`CONFLICT (name) DO NOTHING`).
		Exec(ctx)
	if err != nil {
		return robolink.Robot{}, fmt.Errorf("insert robot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return robolink.Robot{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return robolink.Robot{}, robolink.ErrRobotExists
	}
	// re-select so CreatedAt carries the database default
	return s.ByName(ctx, robot.Name)
}

func (s *RobotStore) ByName(ctx context.Context, name robolink.RobotIdentity) (robolink.Robot, error) {
	robot := new(Robot)
	err := s.DB.NewSelect().
		Model(robot).
		Where(`name=?`, string(name)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return robolink.Robot{}, robolink.ErrRobotNotFound
		}
		return robolink.Robot{}, fmt.Errorf("select robot: %w", err)
	}
	return robot.ToDomain(), nil
}

func (s *RobotStore) All(ctx context.Context) ([]robolink.Robot, error) {
	var robots []Robot
	err := s.DB.NewSelect().
		Model(&robots).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select robots: %w", err)
	}
	mapped := make([]robolink.Robot, len(robots))
	for i, robot := range robots {
		mapped[i] = robot.ToDomain()
	}
	return mapped, nil
}

// CreateSchema creates the robot table when missing. Used by the test
// environment and at server startup for fresh databases.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		IfNotExists().
		Model((*Robot)(nil)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create robot table: %w", err)
	}
	return nil
}
