package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/suite"

	"profreg/internal/platform/database"
	"profreg/internal/registrant/models"
	"profreg/pkg/platform/sentinel"
)

type SQLStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *SQLStore
}

func TestSQLStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLStoreSuite))
}

func (s *SQLStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.store = NewSQL(db, database.MySQL)
}

func (s *SQLStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

const (
	existsQuery = "SELECT 1 FROM profession WHERE email = ? OR phone = ? LIMIT 1"
	insertQuery = "INSERT INTO profession (name, surname, phone, email, profession)"
)

func (s *SQLStoreSuite) TestExistsByEmailOrPhone() {
	ctx := context.Background()

	s.Run("row found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
			WithArgs("ann@example.com", "+12025550123").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		found, err := s.store.ExistsByEmailOrPhone(ctx, "ann@example.com", "+12025550123")
		s.Require().NoError(err)
		s.True(found)
	})

	s.Run("no rows", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
			WithArgs("ann@example.com", "+12025550123").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		found, err := s.store.ExistsByEmailOrPhone(ctx, "ann@example.com", "+12025550123")
		s.Require().NoError(err)
		s.False(found)
	})

	s.Run("query error is wrapped", func() {
		boom := errors.New("server has gone away")
		s.mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnError(boom)

		_, err := s.store.ExistsByEmailOrPhone(ctx, "ann@example.com", "+12025550123")
		s.ErrorIs(err, boom)
	})
}

func (s *SQLStoreSuite) TestInsertIfUnique() {
	ctx := context.Background()
	r := &models.Registrant{
		Name: "Ann", Surname: "Lee", Phone: "+12025550123",
		Email: "ann@example.com", Profession: "Engineer, Pilot",
	}

	s.Run("commits when no duplicate exists", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
			WithArgs("Ann", "Lee", "+12025550123", "ann@example.com", "Engineer, Pilot", "ann@example.com", "+12025550123").
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectCommit()

		s.Require().NoError(s.store.InsertIfUnique(ctx, r))
	})

	s.Run("zero rows affected is a conflict", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec(regexp.QuoteMeta(insertQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		s.mock.ExpectRollback()

		s.ErrorIs(s.store.InsertIfUnique(ctx, r), sentinel.ErrConflict)
	})

	s.Run("exec error rolls back", func() {
		boom := errors.New("deadlock")
		s.mock.ExpectBegin()
		s.mock.ExpectExec(regexp.QuoteMeta(insertQuery)).WillReturnError(boom)
		s.mock.ExpectRollback()

		s.ErrorIs(s.store.InsertIfUnique(ctx, r), boom)
	})

	s.Run("nil registrant", func() {
		s.Error(s.store.InsertIfUnique(ctx, nil))
	})
}

func (s *SQLStoreSuite) TestListAll() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT name, surname, phone, email, profession FROM profession")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "surname", "phone", "email", "profession"}).
			AddRow("Ann", "Lee", "+12025550123", "ann@example.com", "Engineer, Pilot").
			AddRow("Bo", "Ng", "+4479460000", "bo@example.com", "Nurse"))

	all, err := s.store.ListAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(models.Registrant{
		Name: "Ann", Surname: "Lee", Phone: "+12025550123", Email: "ann@example.com", Profession: "Engineer, Pilot",
	}, *all[0])
	s.Equal("Nurse", all[1].Profession)
}

func (s *SQLStoreSuite) TestListProfessions() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT profession FROM profession")).
		WillReturnRows(sqlmock.NewRows([]string{"profession"}).AddRow("Engineer, Pilot").AddRow("Nurse"))

	professions, err := s.store.ListProfessions(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"Engineer, Pilot", "Nurse"}, professions)
}

func (s *SQLStoreSuite) TestPostgresPlaceholders() {
	s.store = NewSQL(s.db, database.Postgres)
	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1 OR phone = $2")).
		WithArgs("ann@example.com", "+12025550123").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	found, err := s.store.ExistsByEmailOrPhone(context.Background(), "ann@example.com", "+12025550123")
	s.Require().NoError(err)
	s.False(found)
}

func (s *SQLStoreSuite) TestInsertIfUnique_UniqueViolation() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	s.mock.ExpectRollback()

	err := s.store.InsertIfUnique(context.Background(), &models.Registrant{Email: "ann@example.com", Phone: "+1"})
	s.ErrorIs(err, sentinel.ErrConflict)
}
