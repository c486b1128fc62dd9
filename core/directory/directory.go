package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
)

var (
	ErrClassNotFound = core.NewNotFoundError("class")
	ErrExportDenied  = core.NewPermissionError("only admins can export students")
)

// Views
const (
	ViewDirectory   = "directory"
	ViewStudent     = "student"
	ViewAttendance  = "attendance"
	ViewDepartments = "departments"
	ViewAnalytics   = "analytics"
	ViewClasses     = "classes"
	ViewDashboard   = "dashboard"
	ViewExport      = "export"
)

// Store is the live source of the directory, in the caller's scope.
type Store interface {
	Query(ctx context.Context, caller user.Caller, filter student.QueryFilter) ([]student.Student, error)
	Get(ctx context.Context, caller user.Caller, id string) (student.Student, error)
	Notes(ctx context.Context, caller user.Caller, studentID string) ([]student.Note, error)
	Attendance(ctx context.Context, caller user.Caller, studentID string) ([]student.Attendance, error)
}

// Fallback is the sample data shown when the store has nothing to show.
type Fallback interface {
	Students() []student.Student
	Student(id string) (student.Student, bool)
	Attendance(studentID string) []student.Attendance
}

// Observer is told where the data of every view came from.
type Observer interface {
	ObserveResolution(view, source, notice string)
}

// Meta describes the resolution of a view.
type Meta struct {
	Source  Source `json:"source"`
	Notice  Notice `json:"notice,omitempty"`
	Message string `json:"message,omitempty"`
	Pending bool   `json:"pending"`
}

func metaOf[T any](res Resolution[T]) Meta {
	return Meta{Source: res.Source, Notice: res.Notice, Message: res.Notice.Message(), Pending: res.Pending}
}

type Directory struct {
	store    Store
	fallback Fallback
	feed     *student.Feed
	observer Observer
	memo     *memo
}

func New(store Store, fallback Fallback, feed *student.Feed, observer Observer, cacheSize int) *Directory {
	vala.BeginValidation().Validate(
		core.IsNotNil(store, "store"),
		core.IsNotNil(fallback, "fallback"),
		vala.IsNotNil(feed, "feed"),
	).CheckAndPanic()

	return &Directory{
		store:    store,
		fallback: fallback,
		feed:     feed,
		observer: observer,
		memo:     newMemo(cacheSize),
	}
}

// Feed returns the change feed the directory follows.
func (d *Directory) Feed() *student.Feed {
	return d.feed
}

func (d *Directory) observe(view string, meta Meta) {
	if d.observer != nil {
		d.observer.ObserveResolution(view, string(meta.Source), string(meta.Notice))
	}
}

// Directory page

type BrowseParams struct {
	Search string  `json:"search"`
	Sort   SortKey `json:"sort"`
}

type Page struct {
	Students []student.Student `json:"students"`
	Meta
}

// mustSearch reports whether caller has to search before seeing students.
func mustSearch(caller user.Caller, params BrowseParams) bool {
	return !caller.IsAdmin() && strings.TrimSpace(params.Search) == ""
}

// BrowseQuery is the live query of the directory page. Admins read every student,
// teachers the students whose name starts with their search. ok is false when no query may run.
func (d *Directory) BrowseQuery(caller user.Caller, params BrowseParams) (q QueryFunc[student.Student], ok bool) {
	if mustSearch(caller, params) {
		return nil, false
	}
	filter := student.QueryFilter{}
	if !caller.IsAdmin() {
		filter.NamePrefix = strings.TrimSpace(params.Search)
	}
	return func(ctx context.Context) ([]student.Student, error) {
		return d.store.Query(ctx, caller, filter)
	}, true
}

// BrowsePage resolves a live result of BrowseQuery into a directory page.
func (d *Directory) BrowsePage(caller user.Caller, params BrowseParams, live Live[student.Student]) (Page, error) {
	var res Resolution[student.Student]
	if mustSearch(caller, params) {
		res = SearchRequired[student.Student]()
	} else {
		res = Resolve(live, d.fallback.Students())
	}
	if res.Err != nil {
		return Page{}, errors.Wrap(res.Err, "querying students")
	}

	items := append(make([]student.Student, 0, len(res.Items)), res.Items...)
	if caller.IsAdmin() || res.Source == SourceFallback {
		items = FilterStudents(items, params.Search)
	}
	SortStudents(items, params.Sort)

	page := Page{Students: items, Meta: metaOf(res)}
	d.observe(ViewDirectory, page.Meta)
	return page, nil
}

// Browse returns a directory page.
func (d *Directory) Browse(ctx context.Context, caller user.Caller, params BrowseParams) (Page, error) {
	q, ok := d.BrowseQuery(caller, params)
	if !ok {
		return d.BrowsePage(caller, params, Live[student.Student]{})
	}
	items, err := q(ctx)
	return d.BrowsePage(caller, params, Live[student.Student]{Items: items, Err: err})
}

// Watch subscribes to the directory page of caller. Pages are built with BrowsePage.
func (d *Directory) Watch(ctx context.Context, caller user.Caller, params BrowseParams) *Subscription[student.Student] {
	return Subscribe(ctx, d.feed, d.watchQuery(caller, params))
}

// watchQuery never queries when caller must search first.
func (d *Directory) watchQuery(caller user.Caller, params BrowseParams) QueryFunc[student.Student] {
	if q, ok := d.BrowseQuery(caller, params); ok {
		return q
	}
	return func(context.Context) ([]student.Student, error) { return nil, nil }
}

// Rewatch replaces the query of a subscription made by Watch.
func (d *Directory) Rewatch(sub *Subscription[student.Student], caller user.Caller, params BrowseParams) {
	sub.Replace(d.watchQuery(caller, params))
}

// Student detail

type StudentView struct {
	Student        student.Student       `json:"student"`
	GWA            *float64              `json:"gwa"`
	ScholarStatus  student.ScholarStatus `json:"scholar_status"`
	DepartmentPath []string              `json:"department_path"`
	Meta
}

func newStudentView(s student.Student, meta Meta) StudentView {
	view := StudentView{
		Student:        s,
		ScholarStatus:  s.ScholarStatus(),
		DepartmentPath: DepartmentPath(s.Department),
		Meta:           meta,
	}
	if gwa, ok := s.GWA(); ok {
		view.GWA = &gwa
	}
	return view
}

// Student returns a student of the store, or the sample student with the same id.
func (d *Directory) Student(ctx context.Context, caller user.Caller, id string) (StudentView, error) {
	stud, err := d.store.Get(ctx, caller, id)
	switch {
	case err == nil:
		return d.studentView(stud, Meta{Source: SourceLive}), nil
	case core.IsNotFound(err), core.IsPermissionDenied(err):
		sample, ok := d.fallback.Student(id)
		if !ok {
			return StudentView{}, err
		}
		meta := Meta{Source: SourceFallback}
		if core.IsPermissionDenied(err) {
			meta.Notice = NoticePermissionDenied
			meta.Message = meta.Notice.Message()
		}
		return d.studentView(sample, meta), nil
	default:
		return StudentView{}, errors.Wrap(err, "getting student")
	}
}

func (d *Directory) studentView(s student.Student, meta Meta) StudentView {
	d.observe(ViewStudent, meta)
	return newStudentView(s, meta)
}

type AttendanceView struct {
	Records []student.Attendance `json:"records"`
	Summary AttendanceSummary    `json:"summary"`
	Meta
}

// Attendance returns the attendance of a student, or generated sample attendance when none was recorded.
func (d *Directory) Attendance(ctx context.Context, caller user.Caller, id string) (AttendanceView, error) {
	if _, err := d.Student(ctx, caller, id); err != nil {
		return AttendanceView{}, err
	}
	return d.attendance(ctx, caller, id)
}

func (d *Directory) attendance(ctx context.Context, caller user.Caller, id string) (AttendanceView, error) {
	records, err := d.store.Attendance(ctx, caller, id)
	res := Resolve(Live[student.Attendance]{Items: records, Err: err}, d.fallback.Attendance(id))
	if res.Err != nil {
		return AttendanceView{}, errors.Wrap(res.Err, "querying attendance")
	}
	view := AttendanceView{Records: res.Items, Summary: SummarizeAttendance(res.Items), Meta: metaOf(res)}
	d.observe(ViewAttendance, view.Meta)
	return view, nil
}

type Profile struct {
	StudentView
	Notes      []student.Note `json:"notes"`
	Attendance AttendanceView `json:"attendance"`
}

// Profile loads a student with their notes and attendance.
// Sample students have no notes.
func (d *Directory) Profile(ctx context.Context, caller user.Caller, id string) (Profile, error) {
	var prof Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		prof.StudentView, err = d.Student(gctx, caller, id)
		return err
	})
	g.Go(func() error {
		notes, err := d.store.Notes(gctx, caller, id)
		if err != nil && !core.IsNotFound(err) && !core.IsPermissionDenied(err) {
			return errors.Wrap(err, "querying notes")
		}
		prof.Notes = notes
		return nil
	})
	g.Go(func() (err error) {
		prof.Attendance, err = d.attendance(gctx, caller, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	if prof.Notes == nil {
		prof.Notes = []student.Note{}
	}
	return prof, nil
}

// Aggregated views

// everyone resolves the unscoped student list, which any caller may read. key identifies the resolved list;
// cacheable is false when the store changed while reading it.
func (d *Directory) everyone(ctx context.Context, caller user.Caller) (res Resolution[student.Student], key string, cacheable bool) {
	rev := d.feed.Revision()
	items, err := d.store.Query(ctx, caller, student.QueryFilter{Aggregate: true})
	res = Resolve(Live[student.Student]{Items: items, Err: err}, d.fallback.Students())
	if res.Source != SourceLive {
		return res, string(res.Source), true
	}
	return res, fmt.Sprintf("%s@%d", res.Source, rev), d.feed.Revision() == rev
}

type DepartmentsView struct {
	Departments []DepartmentGroup `json:"departments"`
	Meta
}

// Departments returns the department hierarchy of the students matching search.
func (d *Directory) Departments(ctx context.Context, caller user.Caller, search string) (DepartmentsView, error) {
	res, key, cacheable := d.everyone(ctx, caller)
	if res.Err != nil {
		return DepartmentsView{}, errors.Wrap(res.Err, "querying students")
	}
	search = strings.TrimSpace(search)
	groups := d.memo.do(fmt.Sprintf("%s|%s|%s", ViewDepartments, key, search), cacheable, func() interface{} {
		return BuildHierarchy(FilterStudents(res.Items, search))
	}).([]DepartmentGroup)

	view := DepartmentsView{Departments: groups, Meta: metaOf(res)}
	d.observe(ViewDepartments, view.Meta)
	return view, nil
}

type AnalyticsView struct {
	Analytics
	Meta
}

func (d *Directory) Analytics(ctx context.Context, caller user.Caller) (AnalyticsView, error) {
	res, key, cacheable := d.everyone(ctx, caller)
	if res.Err != nil {
		return AnalyticsView{}, errors.Wrap(res.Err, "querying students")
	}
	a := d.memo.do(ViewAnalytics+"|"+key, cacheable, func() interface{} {
		return ComputeAnalytics(res.Items)
	}).(Analytics)

	view := AnalyticsView{Analytics: a, Meta: metaOf(res)}
	d.observe(ViewAnalytics, view.Meta)
	return view, nil
}

type DashboardView struct {
	Stats
	Meta
}

func (d *Directory) Dashboard(ctx context.Context, caller user.Caller) (DashboardView, error) {
	res, key, cacheable := d.everyone(ctx, caller)
	if res.Err != nil {
		return DashboardView{}, errors.Wrap(res.Err, "querying students")
	}
	stats := d.memo.do(ViewDashboard+"|"+key, cacheable, func() interface{} {
		return ComputeStats(res.Items)
	}).(Stats)

	view := DashboardView{Stats: stats, Meta: metaOf(res)}
	d.observe(ViewDashboard, view.Meta)
	return view, nil
}

func (d *Directory) rosters(ctx context.Context, caller user.Caller) ([]Roster, Meta, error) {
	res, key, cacheable := d.everyone(ctx, caller)
	if res.Err != nil {
		return nil, Meta{}, errors.Wrap(res.Err, "querying students")
	}
	rosters := d.memo.do(ViewClasses+"|"+key, cacheable, func() interface{} {
		return BuildRosters(res.Items)
	}).([]Roster)

	meta := metaOf(res)
	d.observe(ViewClasses, meta)
	return rosters, meta, nil
}

type ClassesView struct {
	Classes []Roster `json:"classes"`
	Meta
}

func (d *Directory) Classes(ctx context.Context, caller user.Caller) (ClassesView, error) {
	rosters, meta, err := d.rosters(ctx, caller)
	if err != nil {
		return ClassesView{}, err
	}
	return ClassesView{Classes: rosters, Meta: meta}, nil
}

type RosterView struct {
	Roster
	Meta
}

// Roster returns the students of a course matching search, sorted by name.
func (d *Directory) Roster(ctx context.Context, caller user.Caller, course, search string, key SortKey) (RosterView, error) {
	rosters, meta, err := d.rosters(ctx, caller)
	if err != nil {
		return RosterView{}, err
	}
	r, ok := FindRoster(rosters, course)
	if !ok {
		return RosterView{}, ErrClassNotFound
	}
	return RosterView{Roster: FilterRoster(r, search, key), Meta: meta}, nil
}

func (d *Directory) ClassListExport(ctx context.Context, caller user.Caller) ([]ClassExport, error) {
	rosters, _, err := d.rosters(ctx, caller)
	if err != nil {
		return nil, err
	}
	return ClassListExport(rosters), nil
}

func (d *Directory) GradeExport(ctx context.Context, caller user.Caller, course string) ([]GradeExportRow, error) {
	rosters, _, err := d.rosters(ctx, caller)
	if err != nil {
		return nil, err
	}
	r, ok := FindRoster(rosters, course)
	if !ok {
		return nil, ErrClassNotFound
	}
	return GradeExport(r), nil
}

// Export returns every student shown by the directory: the students of the store, or the sample ones.
func (d *Directory) Export(ctx context.Context, caller user.Caller) ([]student.Student, error) {
	if !caller.IsAdmin() {
		return nil, ErrExportDenied
	}
	res, _, _ := d.everyone(ctx, caller)
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, "querying students")
	}
	d.observe(ViewExport, metaOf(res))
	return res.Items, nil
}
