package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/user"
	emailsvc "github.com/tlmsproject/tlms/services/email"
	testutil "github.com/tlmsproject/tlms/tests"
)

func Test_courseApi_create(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)

	body := marchallObj(t, course.NewCourse{
		Title:       "Go for Gophers",
		Description: "An introduction",
		Price:       0,
		Modules: []course.Module{
			{Title: "Basics", Lessons: []course.Lesson{
				{Title: "Hello", Type: course.LessonText, TextBody: "hello world"},
			}},
		},
	})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Educator required", token: getToken(t, learner), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Title required", token: getToken(t, educator), body: marchallObj(t, course.NewCourse{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "Lesson payload required", token: getToken(t, educator),
			body: marchallObj(t, course.NewCourse{Title: "Broken", Modules: []course.Module{
				{Title: "M", Lessons: []course.Lesson{{Title: "L", Type: course.LessonText}}},
			}}),
			wantCode: http.StatusBadRequest,
		},
		{name: "Created", token: getToken(t, educator), body: body, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if crs.Status != course.StatusDraft {
					t.Errorf("status = %s; want %s", crs.Status, course.StatusDraft)
				}
				if crs.EducatorID != educator.ID {
					t.Errorf("educator_id = %s; want %s", crs.EducatorID, educator.ID)
				}
				if crs.Modules[0].ID == "" || crs.Modules[0].Lessons[0].ID == "" {
					t.Error("module and lesson IDs were not assigned")
				}
				return
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_courseApi_query(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	mod := testutil.TextModule("Basics", "a")
	draft := testutil.CreateCourse(t, crsRepo, educator.ID, "Draft Course", course.StatusDraft, 0, []course.Module{mod})
	published := testutil.CreateCourse(t, crsRepo, educator.ID, "Published Course", course.StatusPublished, 0, []course.Module{mod})
	rivalCrs := testutil.CreateCourse(t, crsRepo, rival.ID, "Rival Course", course.StatusPublished, 0, []course.Module{mod})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Learner sees published only", token: getToken(t, learner), wantData: marchallList(t, published, rivalCrs)},
		{name: "Educator sees own courses", token: getToken(t, educator), wantData: marchallList(t, draft, published)},
		{name: "Admin sees everything", token: getToken(t, admin), wantData: marchallList(t, draft, published, rivalCrs)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/courses"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)

	mod := testutil.TextModule("Basics", "a")
	draft := testutil.CreateCourse(t, crsRepo, educator.ID, "Draft Course", course.StatusDraft, 0, []course.Module{mod})
	published := testutil.CreateCourse(t, crsRepo, educator.ID, "Published Course", course.StatusPublished, 0, []course.Module{mod})

	tests := []httpTest{
		{
			name: "Unknown course", path: "/v1/courses/b3aa2c3d-0000-0000-0000-000000000000", token: getToken(t, learner),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
		{
			name: "Draft hidden from learners", path: "/v1/courses/" + draft.ID, token: getToken(t, learner),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "Owner sees draft", path: "/v1/courses/" + draft.ID, token: getToken(t, educator), wantCode: http.StatusOK, wantData: marchallObj(t, draft)},
		{name: "Published visible to learners", path: "/v1/courses/" + published.ID, token: getToken(t, learner), wantCode: http.StatusOK, wantData: marchallObj(t, published)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_reviewFlow(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "", []string{user.RoleEducator}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	mod := testutil.TextModule("Basics", "a")
	crs := testutil.CreateCourse(t, crsRepo, educator.ID, "Draft Course", course.StatusDraft, 0, []course.Module{mod})

	educatorToken := getToken(t, educator)
	adminToken := getToken(t, admin)

	type wantStatus struct {
		status course.Status
	}
	tests := []httpTest{
		{
			name: "Review is admin only", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: educatorToken,
			body: marchallObj(t, course.ReviewDecision{Action: "approve"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Non-owner cannot submit", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/submit", token: getToken(t, rival),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: course.ErrNotOwner.Error()}),
		},
		{
			name: "Approve before submission", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: adminToken,
			body:     marchallObj(t, course.ReviewDecision{Action: "approve"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrNotReviewable.Error()}),
		},
		{
			name: "Owner submits draft", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/submit", token: educatorToken,
			wantCode: http.StatusOK, extra: wantStatus{course.StatusPendingReview},
		},
		{
			name: "Reject requires a reason", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: adminToken,
			body:     marchallObj(t, course.ReviewDecision{Action: "reject"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"reason": "this field is required"}),
		},
		{
			name: "Reject with reason", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: adminToken,
			body:     marchallObj(t, course.ReviewDecision{Action: "reject", Reason: "too thin"}),
			wantCode: http.StatusOK, extra: wantStatus{course.StatusRejected},
		},
		{
			name: "Owner resubmits after rejection", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/submit", token: educatorToken,
			wantCode: http.StatusOK, extra: wantStatus{course.StatusPendingReview},
		},
		{
			name: "Approve publishes", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: adminToken,
			body:     marchallObj(t, course.ReviewDecision{Action: "approve"}),
			wantCode: http.StatusOK, extra: wantStatus{course.StatusPublished},
		},
		{
			name: "Published course is not editable", method: http.MethodPut, path: "/v1/courses/" + crs.ID, token: educatorToken,
			body:     marchallObj(t, course.UpdateCourse{Title: "New Title"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrNotEditable.Error()}),
		},
		{
			name: "Remove published", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/review", token: adminToken,
			body:     marchallObj(t, course.ReviewDecision{Action: "remove", Reason: "policy violation"}),
			wantCode: http.StatusOK, extra: wantStatus{course.StatusRemoved},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if want, ok := tt.extra.(wantStatus); ok {
				var got course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if got.Status != want.status {
					t.Errorf("status = %s; want %s", got.Status, want.status)
				}
				return
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_courseApi_statusEmails(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AllRoles, true)
	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)

	mod := testutil.TextModule("Basics", "a")
	crs := testutil.CreateCourse(t, crsRepo, educator.ID, "Go Mastery", course.StatusDraft, 0, []course.Module{mod})

	type wantMail struct {
		subject string
	}
	tests := []httpTest{
		{
			name: "Submission notifies the educator", path: "/v1/courses/" + crs.ID + "/submit", token: getToken(t, educator),
			wantCode: http.StatusOK, extra: wantMail{subject: "We received your course submission"},
		},
		{
			name: "Approval notifies the educator", path: "/v1/courses/" + crs.ID + "/review", token: getToken(t, admin),
			body:     marchallObj(t, course.ReviewDecision{Action: "approve"}),
			wantCode: http.StatusOK, extra: wantMail{subject: "Your course is live"},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			want := tt.extra.(wantMail)
			if len(emailsvc.SentMessages) != 1 {
				t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
			}
			msg := emailsvc.SentMessages[0]
			if msg.To[0].Address != educator.Email {
				t.Errorf("failed! To = %v; want %v", msg.To[0].Address, educator.Email)
			}
			if msg.Subject != want.subject {
				t.Errorf("failed! Subject = %q; want %q", msg.Subject, want.subject)
			}
			if !strings.Contains(msg.TextContent, crs.Title) {
				t.Errorf("failed! text content does not contain course title %q", crs.Title)
			}
		})
	}
}
