package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return New(db), mock
}

const (
	qCodeOwner   = `select id from profiles where referral_code = \$1`
	qLockReferee = `select referred_by from profiles where id = \$1 for update`
	qLockCoins   = `select coin_points from profiles where id = \$1 for update`
	qInsertTx    = `insert into coin_transactions`
)

func txRow(seq int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"sequence", "created_at"}).AddRow(seq, time.Now())
}

func TestApplyReferral_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)
	reward := ledger.Reward{Referrer: 50}

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("AB12C3").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("A"))
	mock.ExpectQuery(qLockReferee).WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow(nil))
	mock.ExpectQuery(qLockReferee).WithArgs("B").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow(nil))
	mock.ExpectExec(`update profiles\s+set referred_by = \$2`).WithArgs("B", "A", int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`set referral_count = referral_count \+ 1`).WithArgs("A", int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qInsertTx).
		WithArgs(sqlmock.AnyArg(), "referral_reward", nil, "A", int64(50)).
		WillReturnRows(txRow(1))
	mock.ExpectCommit()

	res, err := s.ApplyReferral(context.Background(), "B", "AB12C3", reward)
	if err != nil {
		t.Fatalf("ApplyReferral error: %v", err)
	}
	if res.ReferrerID != "A" || res.ReferrerAwarded != 50 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestApplyReferral_AlreadyReferred(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("CCCCCC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("C"))
	mock.ExpectQuery(qLockReferee).WithArgs("B").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow("A"))
	mock.ExpectQuery(qLockReferee).WithArgs("C").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow(nil))
	mock.ExpectRollback()

	_, err := s.ApplyReferral(context.Background(), "B", "CCCCCC", ledger.DefaultReward())
	if !errors.Is(err, ledger.ErrAlreadyReferred) {
		t.Fatalf("want ErrAlreadyReferred, got %v", err)
	}
}

func TestApplyReferral_UnknownCodeAndSelf(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("ZZZZZZ").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(qLockReferee).WithArgs("B").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow(nil))
	mock.ExpectRollback()

	if _, err := s.ApplyReferral(context.Background(), "B", "ZZZZZZ", ledger.DefaultReward()); !errors.Is(err, ledger.ErrCodeNotFound) {
		t.Fatalf("want ErrCodeNotFound, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("QQQQQQ").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("B"))
	mock.ExpectQuery(qLockReferee).WithArgs("B").
		WillReturnRows(sqlmock.NewRows([]string{"referred_by"}).AddRow(nil))
	mock.ExpectRollback()

	if _, err := s.ApplyReferral(context.Background(), "B", "QQQQQQ", ledger.DefaultReward()); !errors.Is(err, ledger.ErrSelfReferral) {
		t.Fatalf("want ErrSelfReferral, got %v", err)
	}
}

func TestTransfer_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("XY9Z8W").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("D"))
	mock.ExpectQuery(qLockCoins).WithArgs("C").
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(100)))
	mock.ExpectQuery(qLockCoins).WithArgs("D").
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(10)))
	mock.ExpectQuery(`coin_points = coin_points - \$2`).WithArgs("C", int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(70)))
	mock.ExpectQuery(`coin_points = coin_points \+ \$2`).WithArgs("D", int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(40)))
	mock.ExpectQuery(qInsertTx).
		WithArgs(sqlmock.AnyArg(), "transfer", "C", "D", int64(30)).
		WillReturnRows(txRow(7))
	mock.ExpectCommit()

	res, err := s.Transfer(context.Background(), "C", "XY9Z8W", 30)
	if err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
	if res.SenderBalance != 70 || res.RecipientBalance != 40 || res.TransactionID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("XY9Z8W").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("D"))
	mock.ExpectQuery(qLockCoins).WithArgs("C").
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(70)))
	mock.ExpectQuery(qLockCoins).WithArgs("D").
		WillReturnRows(sqlmock.NewRows([]string{"coin_points"}).AddRow(int64(40)))
	mock.ExpectRollback()

	if _, err := s.Transfer(context.Background(), "C", "XY9Z8W", 80); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestTransfer_SelfAndUnknown(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("CCCCCC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("C"))
	mock.ExpectRollback()
	if _, err := s.Transfer(context.Background(), "C", "CCCCCC", 5); !errors.Is(err, ledger.ErrSelfTransfer) {
		t.Fatalf("want ErrSelfTransfer, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(qCodeOwner).WithArgs("ZZZZZZ").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	if _, err := s.Transfer(context.Background(), "C", "ZZZZZZ", 5); !errors.Is(err, ledger.ErrRecipientNotFound) {
		t.Fatalf("want ErrRecipientNotFound, got %v", err)
	}

	if _, err := s.Transfer(context.Background(), "C", "ZZZZZZ", 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
}

func TestCredit_UnknownProfile(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`update profiles set coin_points = coin_points \+ \$2`).WithArgs("ghost", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := s.Credit(context.Background(), "ghost", 10); !errors.Is(err, ledger.ErrProfileNotFound) {
		t.Fatalf("want ErrProfileNotFound, got %v", err)
	}
}

func TestCredit_OutOfRange(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`update profiles set coin_points = coin_points \+ \$2`).WithArgs("C", int64(10)).
		WillReturnError(&pgconn.PgError{Code: pgErrNumericOutOfRange, Message: "bigint out of range"})
	mock.ExpectRollback()

	if _, err := s.Credit(context.Background(), "C", 10); !errors.Is(err, ledger.ErrBalanceOverflow) {
		t.Fatalf("want ErrBalanceOverflow, got %v", err)
	}
}

func TestListTransactions_Cursor(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now()
	cols := []string{"sequence", "id", "kind", "from_user_id", "to_user_id", "amount", "created_at"}

	mock.ExpectQuery(`from coin_transactions`).WithArgs("C", int64(0), 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(3), "t3", "admin_credit", "", "C", int64(100), now).
			AddRow(int64(5), "t5", "transfer", "C", "D", int64(30), now))

	txs, next, err := s.ListTransactions(context.Background(), "C", 2, 0)
	if err != nil {
		t.Fatalf("ListTransactions error: %v", err)
	}
	if len(txs) != 2 || next != 5 || txs[1].Kind != ledger.KindTransfer {
		t.Fatalf("unexpected page: %+v next=%d", txs, next)
	}

	mock.ExpectQuery(`from coin_transactions`).WithArgs("C", int64(5), 2).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(9), "t9", "transfer", "D", "C", int64(1), now))
	_, next, err = s.ListTransactions(context.Background(), "C", 2, 5)
	if err != nil || next != 0 {
		t.Fatalf("short page should end paging: next=%d err=%v", next, err)
	}
}

func TestCreateProfile_UniqueViolations(t *testing.T) {
	s, mock := newStoreWithMock(t)
	p := profiles.Profile{ID: "u1", ReferralCode: "AB12C3"}

	mock.ExpectQuery(`insert into profiles`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "profiles_referral_code_key"})
	if _, err := s.CreateProfile(context.Background(), p); !errors.Is(err, profiles.ErrReferralCodeTaken) {
		t.Fatalf("want ErrReferralCodeTaken, got %v", err)
	}

	mock.ExpectQuery(`insert into profiles`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "profiles_pkey"})
	if _, err := s.CreateProfile(context.Background(), p); !errors.Is(err, profiles.ErrExists) {
		t.Fatalf("want ErrExists, got %v", err)
	}
}

func TestFindProfile_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`from profiles where id = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	if _, err := s.FindProfile(context.Background(), "ghost"); !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateGrant_Violations(t *testing.T) {
	s, mock := newStoreWithMock(t)
	g := access.Grant{ID: "g1", GranteeID: "ghost", GranterID: "root"}

	mock.ExpectQuery(`insert into access_grants`).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "access_grants_grantee_id_fkey"})
	if _, err := s.CreateGrant(context.Background(), g); !errors.Is(err, access.ErrGranteeNotFound) {
		t.Fatalf("want ErrGranteeNotFound, got %v", err)
	}

	mock.ExpectQuery(`insert into access_grants`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "access_grants_grantee_id_key"})
	if _, err := s.CreateGrant(context.Background(), g); !errors.Is(err, access.ErrDuplicateGrant) {
		t.Fatalf("want ErrDuplicateGrant, got %v", err)
	}
}

func TestAddMember_AlreadyMember(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`insert into community_members`).WithArgs("c1", "u1").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "community_members_pkey"})

	if err := s.AddMember(context.Background(), "c1", "u1"); !errors.Is(err, communities.ErrAlreadyMember) {
		t.Fatalf("want ErrAlreadyMember, got %v", err)
	}
}

func TestCreateSite_SlugTaken(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`insert into sites`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "sites_slug_key"})

	_, err := s.CreateSite(context.Background(), sites.Site{ID: "s1", Slug: "chez-ama", Template: sites.TemplateService})
	if !errors.Is(err, sites.ErrSlugTaken) {
		t.Fatalf("want ErrSlugTaken, got %v", err)
	}
}

func TestFindSite_DecodesSettings(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "name", "slug", "template", "settings", "status", "created_at", "updated_at"}).
		AddRow("s1", "u1", "Chez Ama", "chez-ama", "ecommerce", []byte(`{"name":"Chez Ama","currency":"XOF","primary_color":"#112233"}`), "published", now, now)
	mock.ExpectQuery(`from sites where slug = \$1`).WithArgs("chez-ama").WillReturnRows(rows)

	site, err := s.FindSiteBySlug(context.Background(), "chez-ama")
	if err != nil {
		t.Fatalf("FindSiteBySlug error: %v", err)
	}
	if site.Settings.Currency != "XOF" || site.Status != sites.StatusPublished || site.Template != sites.TemplateEcommerce {
		t.Fatalf("unexpected site: %+v", site)
	}
}

func videoRow(id string, state video.State, attempts int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "prompt", "provider_task_id", "state", "result_url", "fail_msg", "attempts", "created_at", "updated_at"}).
		AddRow(id, "u1", "market at dusk", "prov-1", string(state), "", "", attempts, now, now)
}

func TestClaimVideoPoll_IncrementsInSQL(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`set attempts = attempts \+ 1, updated_at = now\(\)\s+where id = \$1 and state = 'waiting'`).
		WithArgs("v1").WillReturnRows(videoRow("v1", video.StateWaiting, 4))
	task, err := s.ClaimVideoPoll(context.Background(), "v1")
	if err != nil || task.Attempts != 4 {
		t.Fatalf("ClaimVideoPoll = %+v, %v", task, err)
	}

	mock.ExpectQuery(`set attempts = attempts \+ 1`).WithArgs("v2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`from video_tasks where id = \$1`).WithArgs("v2").
		WillReturnRows(videoRow("v2", video.StateSuccess, 2))
	task, err = s.ClaimVideoPoll(context.Background(), "v2")
	if err != nil || task.State != video.StateSuccess || task.Attempts != 2 {
		t.Fatalf("finished task should be returned unchanged: %+v, %v", task, err)
	}
}

func TestUpdateVideoTask_LeavesAttempts(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`set state = \$2, result_url = \$3, fail_msg = \$4, updated_at = now\(\)`).
		WithArgs("v1", "success", "https://cdn.example.com/v.mp4", "").
		WillReturnRows(videoRow("v1", video.StateSuccess, 3))
	task, err := s.UpdateVideoTask(context.Background(), video.Task{
		ID: "v1", State: video.StateSuccess, ResultURL: "https://cdn.example.com/v.mp4", Attempts: 1,
	})
	if err != nil || task.Attempts != 3 {
		t.Fatalf("UpdateVideoTask = %+v, %v", task, err)
	}
}
