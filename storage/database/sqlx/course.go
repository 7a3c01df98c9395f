package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/course"
)

const courseColumns = `id, educator_id, title, description, price, status, modules, removal_note, created_at, updated_at`

type dbCourse struct {
	ID          string    `db:"id"`
	EducatorID  string    `db:"educator_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Status      string    `db:"status"`
	Modules     []byte    `db:"modules"`
	RemovalNote string    `db:"removal_note"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (dc dbCourse) toCourse() (course.Course, error) {
	crs := course.Course{
		ID:          dc.ID,
		EducatorID:  dc.EducatorID,
		Title:       dc.Title,
		Description: dc.Description,
		Price:       dc.Price,
		Status:      course.Status(dc.Status),
		RemovalNote: dc.RemovalNote,
		CreatedAt:   dc.CreatedAt,
		UpdatedAt:   dc.UpdatedAt,
	}
	if len(dc.Modules) > 0 {
		if err := json.Unmarshal(dc.Modules, &crs.Modules); err != nil {
			return course.Course{}, errors.Wrap(err, "decoding course modules")
		}
	}
	return crs, nil
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	return getExec(repo.db, svcExec)
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	modules, err := json.Marshal(crs.Modules)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course modules")
	}

	ext := repo.getExec(exec)
	q := ext.Rebind(`
		INSERT INTO course (id, educator_id, title, description, price, status, modules, removal_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = ext.ExecContext(ctx, q,
		crs.ID, crs.EducatorID, crs.Title, crs.Description, crs.Price,
		string(crs.Status), modules, crs.RemovalNote, crs.CreatedAt, crs.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		// courses with Title or Description matching the search keyword
		if filter.Search != "" {
			conds = append(conds, `(title ILIKE ? OR description ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.EducatorID != "" {
			conds = append(conds, `educator_id = ?`)
			args = append(args, filter.EducatorID)
		}
		if len(filter.Statuses) > 0 {
			ph := make([]string, 0, len(filter.Statuses))
			for _, st := range filter.Statuses {
				ph = append(ph, "?")
				args = append(args, string(st))
			}
			conds = append(conds, `status IN (`+strings.Join(ph, ", ")+`)`)
		}
	}

	q := `SELECT ` + courseColumns + ` FROM course`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	ext := repo.getExec(exec)
	var rows []dbCourse
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, dc := range rows {
		crs, err := dc.toCourse()
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	ext := repo.getExec(exec)
	var dc dbCourse
	q := ext.Rebind(`SELECT ` + courseColumns + ` FROM course WHERE id = ?`)
	if err := sqlx.GetContext(ctx, ext, &dc, q, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return dc.toCourse()
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	modules, err := json.Marshal(crs.Modules)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course modules")
	}

	ext := repo.getExec(exec)
	q := ext.Rebind(`
		UPDATE course SET
			title = ?,
			description = ?,
			price = ?,
			status = ?,
			modules = ?,
			removal_note = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING ` + courseColumns)

	var dc dbCourse
	row := ext.QueryRowxContext(ctx, q,
		crs.Title, crs.Description, crs.Price, string(crs.Status),
		modules, crs.RemovalNote, crs.UpdatedAt, crs.ID)
	if err = row.StructScan(&dc); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "updating course")
	}
	return dc.toCourse()
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}

	ext := repo.getExec(exec)
	res, err := ext.ExecContext(ctx, ext.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
