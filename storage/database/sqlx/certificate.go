package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/certificate"
)

const certificateColumns = `id, number, learner_id, learner_name, course_id, course_title, instructor_name, issued_at`

type dbCertificate struct {
	ID             string    `db:"id"`
	Number         string    `db:"number"`
	LearnerID      string    `db:"learner_id"`
	LearnerName    string    `db:"learner_name"`
	CourseID       string    `db:"course_id"`
	CourseTitle    string    `db:"course_title"`
	InstructorName string    `db:"instructor_name"`
	IssuedAt       time.Time `db:"issued_at"`
}

type certificateRepository struct {
	db *sqlx.DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *sqlx.DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo certificateRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	return getExec(repo.db, svcExec)
}

func (repo certificateRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return certificate.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo certificateRepository) FindCertificate(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	ext := repo.getExec(exec)
	var dc dbCertificate
	q := ext.Rebind(`SELECT ` + certificateColumns + ` FROM certificate WHERE learner_id = ? AND course_id = ?`)
	if err := sqlx.GetContext(ctx, ext, &dc, q, learnerID, courseID); err != nil {
		return certificate.Certificate{}, repo.trapNoRowsErr(err, "finding certificate")
	}
	return certificate.Certificate(dc), nil
}

func (repo certificateRepository) GetCertificateByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	ext := repo.getExec(exec)
	var dc dbCertificate
	q := ext.Rebind(`SELECT ` + certificateColumns + ` FROM certificate WHERE number = ?`)
	if err := sqlx.GetContext(ctx, ext, &dc, q, number); err != nil {
		return certificate.Certificate{}, repo.trapNoRowsErr(err, "finding certificate by number")
	}
	return certificate.Certificate(dc), nil
}

func (repo certificateRepository) QueryCertificatesByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]certificate.Certificate, error) {
	q := `SELECT ` + certificateColumns + ` FROM certificate WHERE learner_id = ?` + orderBy(ordering, "issued_at DESC")

	ext := repo.getExec(exec)
	var rows []dbCertificate
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), learnerID); err != nil {
		return nil, errors.Wrap(err, "querying certificates")
	}
	certs := make([]certificate.Certificate, 0, len(rows))
	for _, dc := range rows {
		certs = append(certs, certificate.Certificate(dc))
	}
	return certs, nil
}

func (repo certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate, exec ...core.DBExecutor) (certificate.Certificate, error) {
	cert.ID = uuid.New().String()
	ext := repo.getExec(exec)

	q := ext.Rebind(`
		INSERT INTO certificate (id, number, learner_id, learner_name, course_id, course_title, instructor_name, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := ext.ExecContext(ctx, q,
		cert.ID, cert.Number, cert.LearnerID, cert.LearnerName,
		cert.CourseID, cert.CourseTitle, cert.InstructorName, cert.IssuedAt)
	if err != nil {
		switch uniqueViolation(err) {
		case "certificate_learner_course_key":
			return certificate.Certificate{}, certificate.ErrPairExists
		case "certificate_number_key":
			return certificate.Certificate{}, certificate.ErrNumberExists
		}
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return cert, nil
}
