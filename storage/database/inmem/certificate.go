package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/certificate"
)

type certificateRepository struct {
	db *certificateTable
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db.certificate}
}

func (repo *certificateRepository) FindCertificate(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cert, ok := repo.db.t[pairKey(learnerID, courseID)]; ok {
		return *cert, nil
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetCertificateByNumber(_ context.Context, number string, _ ...core.DBExecutor) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cert := range repo.db.t {
		if cert.Number == number {
			return *cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) QueryCertificatesByLearner(_ context.Context, learnerID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var certs []certificate.Certificate
	for _, cert := range repo.db.t {
		if cert.LearnerID == learnerID {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.After(certs[j].IssuedAt) })
	return certs, nil
}

func (repo *certificateRepository) CreateCertificate(_ context.Context, cert certificate.Certificate, _ ...core.DBExecutor) (certificate.Certificate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey(cert.LearnerID, cert.CourseID)
	if _, ok := repo.db.t[key]; ok {
		return certificate.Certificate{}, certificate.ErrPairExists
	}
	for _, c := range repo.db.t {
		if c.Number == cert.Number {
			return certificate.Certificate{}, certificate.ErrNumberExists
		}
	}
	cert.ID = uuid.New().String()
	repo.db.t[key] = &cert
	return cert, nil
}
