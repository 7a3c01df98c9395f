package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/tlmsproject/tlms/apps/api/echo"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/enrollment"
	"github.com/tlmsproject/tlms/core/user"
	testutil "github.com/tlmsproject/tlms/tests"
)

func Test_enrollmentApi_enroll(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)

	mod := testutil.TextModule("Basics", "a", "b")
	draft := testutil.CreateCourse(t, crsRepo, educator.ID, "Draft Course", course.StatusDraft, 0, []course.Module{mod})
	free := testutil.CreateCourse(t, crsRepo, educator.ID, "Free Course", course.StatusPublished, 0, []course.Module{mod})
	paid := testutil.CreateCourse(t, crsRepo, educator.ID, "Paid Course", course.StatusPublished, 29.99, []course.Module{mod})

	learnerToken := getToken(t, learner)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses/" + free.ID + "/enroll", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Draft not enrollable", path: "/v1/courses/" + draft.ID + "/enroll", token: learnerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: enrollment.ErrCourseNotPublished.Error()}),
		},
		{
			name: "Paid course needs a payment reference", path: "/v1/courses/" + paid.ID + "/enroll", token: learnerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"payment_ref": enrollment.ErrPaymentRequired.Error()}),
		},
		{
			name: "Paid enrollment with reference", path: "/v1/courses/" + paid.ID + "/enroll", token: learnerToken,
			body: marchallObj(t, enrollment.NewEnrollment{PaymentRef: "pay_123"}), wantCode: http.StatusCreated,
		},
		{name: "Free enrollment", path: "/v1/courses/" + free.ID + "/enroll", token: learnerToken, wantCode: http.StatusCreated},
		{
			name: "Double enrollment rejected", path: "/v1/courses/" + free.ID + "/enroll", token: learnerToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: enrollment.ErrAlreadyEnrolled.Error()}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusCreated {
				var resp echoapi.EnrollmentResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if resp.LearnerID != learner.ID {
					t.Errorf("learner_id = %s; want %s", resp.LearnerID, learner.ID)
				}
				if resp.State != enrollment.StateNotStarted {
					t.Errorf("state = %s; want %s", resp.State, enrollment.StateNotStarted)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// both enrollments show up on the learner's list
	req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", learnerToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var enrs []echoapi.EnrollmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &enrs); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(enrs) != 2 {
		t.Errorf("len(enrollments) = %d; want 2", len(enrs))
	}
}

func Test_enrollmentApi_completeLesson(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)

	m1 := testutil.TextModule("Basics", "a", "b")
	m2 := testutil.TextModule("Advanced", "c")
	crs := testutil.CreateCourse(t, crsRepo, educator.ID, "Go Course", course.StatusPublished, 0, []course.Module{m1, m2})
	testutil.CreateEnrollment(t, enrRepo, learner.ID, crs.ID, "")

	learnerToken := getToken(t, learner)
	lessonPath := func(lid string) string { return "/v1/courses/" + crs.ID + "/lessons/" + lid + "/complete" }

	type want struct {
		progress        float64
		nextLessonID    string
		courseCompleted bool
		certIssued      bool
	}
	tests := []httpTest{
		{
			name: "Unknown lesson", path: lessonPath("nope"), token: learnerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: enrollment.ErrInvalidLesson.Error()}),
		},
		{name: "First lesson", path: lessonPath("a"), token: learnerToken, wantCode: http.StatusOK, extra: want{progress: 1.0 / 3, nextLessonID: "b"}},
		{name: "Repeat completion is a no-op", path: lessonPath("a"), token: learnerToken, wantCode: http.StatusOK, extra: want{progress: 1.0 / 3, nextLessonID: "b"}},
		{name: "Second lesson", path: lessonPath("b"), token: learnerToken, wantCode: http.StatusOK, extra: want{progress: 2.0 / 3, nextLessonID: "c"}},
		{name: "Final lesson completes the course", path: lessonPath("c"), token: learnerToken, wantCode: http.StatusOK, extra: want{progress: 1, courseCompleted: true, certIssued: true}},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			w, ok := tt.extra.(want)
			if !ok {
				checkCodeAndData(t, tt, rec)
				return
			}

			var res enrollment.CompletionResult
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if diff := res.Progress - w.progress; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("progress = %v; want %v", res.Progress, w.progress)
			}
			if res.NextLessonID != w.nextLessonID {
				t.Errorf("next_lesson_id = %q; want %q", res.NextLessonID, w.nextLessonID)
			}
			if res.CourseCompleted != w.courseCompleted {
				t.Errorf("course_completed = %v; want %v", res.CourseCompleted, w.courseCompleted)
			}
			if w.certIssued {
				if res.Certificate == nil {
					t.Fatal("expected a certificate with the final completion")
				}
				if res.Certificate.LearnerID != learner.ID || res.Certificate.CourseID != crs.ID {
					t.Errorf("certificate pair = (%s, %s); want (%s, %s)",
						res.Certificate.LearnerID, res.Certificate.CourseID, learner.ID, crs.ID)
				}
			} else if res.Certificate != nil {
				t.Errorf("unexpected certificate: %+v", res.Certificate)
			}
		})
	}
}

func Test_enrollmentApi_completions(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)
	stranger := testutil.CreateUser(t, usrRepo, "Stranger", "stranger", "stranger@test.cd", "", []string{user.RoleLearner}, true)

	mod := testutil.TextModule("Basics", "a", "b", "c")
	crs := testutil.CreateCourse(t, crsRepo, educator.ID, "Go Course", course.StatusPublished, 0, []course.Module{mod})
	testutil.CreateEnrollment(t, enrRepo, learner.ID, crs.ID, "")

	learnerToken := getToken(t, learner)
	path := "/v1/courses/" + crs.ID + "/completions"

	// not enrolled
	req, rec := newAuthRequest(http.MethodGet, path, getToken(t, stranger))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	// complete the first lesson, then check the sequence states
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/lessons/a/complete", learnerToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, path, learnerToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}

	var resp echoapi.ProgressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if resp.State != enrollment.StateInProgress {
		t.Errorf("state = %s; want %s", resp.State, enrollment.StateInProgress)
	}
	wantStates := []struct {
		id        string
		completed bool
		unlocked  bool
	}{
		{"a", true, true},
		{"b", false, true}, // next in sequence
		{"c", false, false},
	}
	if len(resp.Lessons) != len(wantStates) {
		t.Fatalf("len(lessons) = %d; want %d", len(resp.Lessons), len(wantStates))
	}
	for i, w := range wantStates {
		ls := resp.Lessons[i]
		if ls.Lesson.ID != w.id || ls.Completed != w.completed || ls.Unlocked != w.unlocked {
			t.Errorf("lessons[%d] = (%s, completed=%v, unlocked=%v); want (%s, %v, %v)",
				i, ls.Lesson.ID, ls.Completed, ls.Unlocked, w.id, w.completed, w.unlocked)
		}
	}
}

func Test_enrollmentApi_scoreQuiz(t *testing.T) {
	app := setup(t)

	educator := testutil.CreateUser(t, usrRepo, "Educator", "prof", "prof@test.cd", "", []string{user.RoleEducator}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleLearner}, true)

	quiz := course.Lesson{
		ID:    "quiz1",
		Title: "Checkpoint",
		Type:  course.LessonQuiz,
		Questions: []course.QuizQuestion{
			{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectIndices: []int{1}},
			{ID: "q2", Prompt: "Primes?", Options: []string{"2", "3", "4"}, CorrectIndices: []int{0, 1}, Points: 2},
		},
	}
	text := course.Lesson{ID: "intro", Title: "Intro", Type: course.LessonText, TextBody: "hi"}
	mod := course.Module{ID: "m1", Title: "Basics", Lessons: []course.Lesson{text, quiz}}
	crs := testutil.CreateCourse(t, crsRepo, educator.ID, "Go Course", course.StatusPublished, 0, []course.Module{mod})
	testutil.CreateEnrollment(t, enrRepo, learner.ID, crs.ID, "")

	learnerToken := getToken(t, learner)
	quizPath := func(lid string) string { return "/v1/courses/" + crs.ID + "/lessons/" + lid + "/quiz" }

	answers := marchallObj(t, echoapi.QuizSubmission{Answers: []course.QuizAnswer{
		{QuestionID: "q1", SelectedIndices: []int{1}},
		{QuestionID: "q2", SelectedIndices: []int{1, 0}},
	}})

	tests := []httpTest{
		{
			name: "Unknown lesson", path: quizPath("nope"), token: learnerToken, body: answers,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: enrollment.ErrInvalidLesson.Error()}),
		},
		{
			name: "Not a quiz", path: quizPath("intro"), token: learnerToken, body: answers,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrNotQuiz.Error()}),
		},
		{name: "Perfect score", path: quizPath("quiz1"), token: learnerToken, body: answers, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}

			var res course.QuizResult
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if res.Score != 3 || res.MaxScore != 3 {
				t.Errorf("score = %d/%d; want 3/3", res.Score, res.MaxScore)
			}
			if res.CorrectCount != 2 || res.Total != 2 {
				t.Errorf("correct = %d/%d; want 2/2", res.CorrectCount, res.Total)
			}
		})
	}

	// quiz scoring is for enrolled learners only
	stranger := testutil.CreateUser(t, usrRepo, "Stranger", "stranger", "stranger@test.cd", "", []string{user.RoleLearner}, true)
	req, rec := newAuthRequest(http.MethodPost, quizPath("quiz1"), getToken(t, stranger), answers)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}
}
