package blogservice

import (
	"regexp"
	"strings"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// authorField is where a query joins the creator's user document.
const authorField = "author"

type op int

const (
	opEq op = iota
	opNe
	opContains
)

// predicate is a single condition on a blog field. Fields under authorField
// refer to the joined creator. Array fields match when any element matches.
type predicate struct {
	field string
	op    op
	value any
}

func (p predicate) joined() bool {
	return strings.HasPrefix(p.field, authorField+".")
}

func (p predicate) bson() bson.M {
	switch p.op {
	case opNe:
		return bson.M{p.field: bson.M{"$ne": p.value}}
	case opContains:
		term, _ := p.value.(string)
		return bson.M{p.field: primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}
	default:
		return bson.M{p.field: p.value}
	}
}

// blogQuery collects predicates and paging for one listing. All predicates
// must hold and, when anyOf is set, at least one of its predicates too.
type blogQuery struct {
	all   []predicate
	anyOf []predicate
	skip  int64
	limit int64
}

func newBlogQuery() *blogQuery {
	return &blogQuery{}
}

func (q *blogQuery) where(field string, value any) *blogQuery {
	q.all = append(q.all, predicate{field: field, op: opEq, value: value})
	return q
}

func (q *blogQuery) whereNot(field string, value any) *blogQuery {
	q.all = append(q.all, predicate{field: field, op: opNe, value: value})
	return q
}

func (q *blogQuery) published() *blogQuery {
	return q.where("draft", false)
}

// matchAny adds a case-insensitive substring match of term on any of fields.
func (q *blogQuery) matchAny(term string, fields ...string) *blogQuery {
	for _, f := range fields {
		q.anyOf = append(q.anyOf, predicate{field: f, op: opContains, value: term})
	}
	return q
}

func (q *blogQuery) page(page, limit int) *blogQuery {
	q.skip = int64(page-1) * int64(limit)
	q.limit = int64(limit)
	return q
}

func (q *blogQuery) needsEarlyJoin() bool {
	for _, p := range q.all {
		if p.joined() {
			return true
		}
	}
	for _, p := range q.anyOf {
		if p.joined() {
			return true
		}
	}
	return false
}

func (q *blogQuery) filter() bson.M {
	var and bson.A
	for _, p := range q.all {
		and = append(and, p.bson())
	}
	if len(q.anyOf) > 0 {
		var or bson.A
		for _, p := range q.anyOf {
			or = append(or, p.bson())
		}
		and = append(and, bson.M{"$or": or})
	}

	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0].(bson.M)
	default:
		return bson.M{"$and": and}
	}
}

func joinAuthor() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         common.UserCollection,
			"localField":   "creator",
			"foreignField": "_id",
			"as":           authorField,
			"pipeline": bson.A{
				bson.M{"$project": bson.M{"name": 1, "username": 1, "email": 1, "profilePic": 1}},
			},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$" + authorField, "preserveNullAndEmptyArrays": true}}},
	}
}

// pipeline returns one aggregation producing a single document with the
// matching count under "total" and the requested page under "blogs". The
// join happens before matching only when a predicate needs it.
func (q *blogQuery) pipeline() mongo.Pipeline {
	var p mongo.Pipeline

	early := q.needsEarlyJoin()
	if early {
		p = append(p, joinAuthor()...)
	}
	p = append(p, bson.D{{Key: "$match", Value: q.filter()}})

	pageStages := bson.A{bson.M{"$sort": bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}}
	if q.skip > 0 {
		pageStages = append(pageStages, bson.M{"$skip": q.skip})
	}
	if q.limit > 0 {
		pageStages = append(pageStages, bson.M{"$limit": q.limit})
	}
	if !early {
		for _, stage := range joinAuthor() {
			pageStages = append(pageStages, stage)
		}
	}

	p = append(p, bson.D{{Key: "$facet", Value: bson.M{
		"total": bson.A{bson.M{"$count": "n"}},
		"blogs": pageStages,
	}}})

	return p
}

// hasMore reports whether results exist beyond the requested page.
func (q *blogQuery) hasMore(total int64) bool {
	return q.limit > 0 && total > q.skip+q.limit
}
