package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scheduler API",
        "description": "Availability resolution and scheduling-conflict engine for tutoring sessions",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Availability declarations and daily resolution"},
        {"name": "Conflicts", "description": "Shared-availability and hard-conflict checks"},
        {"name": "Sessions", "description": "Class session booking and generation"},
        {"name": "SchedulingConfig", "description": "Global and per-branch scheduling policies"},
        {"name": "Exports", "description": "Timetable downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List availability declarations",
                "parameters": [
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["REGULAR", "EXCEPTION", "ABSENCE"]},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Declare availability",
                "description": "Stores a declaration and trims or deletes overlapping rows of the opposite type on the same date.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/batch": {
            "post": {
                "tags": ["Availability"],
                "summary": "Import declarations in bulk",
                "description": "Each item succeeds or fails on its own; failures never abort the batch.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchImportAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/resolve": {
            "get": {
                "tags": ["Availability"],
                "summary": "Resolve a user's availability for one date",
                "parameters": [
                    {"name": "user_id", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/{id}": {
            "delete": {
                "tags": ["Availability"],
                "summary": "Delete a declaration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/shared-availability": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Check whether a teacher and student share a time window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SharedAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/check": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Run a full conflict check for a candidate slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "parameters": [
                    {"name": "branch_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "booth_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "include_cancelled", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Book a session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get one session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Cancel a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Already cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/reschedule": {
            "put": {
                "tags": ["Sessions"],
                "summary": "Move a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/generate": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Generate sessions from a weekly template",
                "parameters": [
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateSessionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling-config/global": {
            "get": {
                "tags": ["SchedulingConfig"],
                "summary": "Get the global scheduling policy",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["SchedulingConfig"],
                "summary": "Replace the global scheduling policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateGlobalPolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling-config/branches/{branchId}": {
            "get": {
                "tags": ["SchedulingConfig"],
                "summary": "Get a branch's policy override",
                "parameters": [
                    {"name": "branchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["SchedulingConfig"],
                "summary": "Patch a branch's policy override",
                "parameters": [
                    {"name": "branchId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBranchPolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["SchedulingConfig"],
                "summary": "Remove a branch's policy override",
                "parameters": [
                    {"name": "branchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/scheduling-config/effective": {
            "get": {
                "tags": ["SchedulingConfig"],
                "summary": "Resolve the effective policy for a branch",
                "parameters": [
                    {"name": "branch_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/branches/{branchId}/timetable.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a branch's day timetable as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "branchId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        },
        "/exports/branches/{branchId}/timetable.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a branch's day timetable as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "branchId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF payload"}
                }
            }
        }
    },
    "definitions": {
        "CreateAvailabilityRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "type": {"type": "string", "enum": ["REGULAR", "EXCEPTION", "ABSENCE"]},
                "day_of_week": {"type": "integer"},
                "date": {"type": "string"},
                "full_day": {"type": "boolean"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]}
            },
            "required": ["user_id", "type"]
        },
        "BatchImportAvailabilityRequest": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CreateAvailabilityRequest"}
                },
                "overwrite": {"type": "boolean"}
            },
            "required": ["items"]
        },
        "SharedAvailabilityRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "student_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            },
            "required": ["teacher_id", "student_id", "date", "start_time", "end_time"]
        },
        "ConflictCheckRequest": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "student_id": {"type": "string"},
                "booth_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "exclude_session_id": {"type": "string"}
            },
            "required": ["branch_id", "date", "start_time", "end_time"]
        },
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "student_id": {"type": "string"},
                "booth_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "subject": {"type": "string"},
                "notes": {"type": "string"},
                "force": {"type": "boolean"}
            },
            "required": ["branch_id", "teacher_id", "student_id", "booth_id", "date", "start_time", "end_time"]
        },
        "RescheduleSessionRequest": {
            "type": "object",
            "properties": {
                "booth_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "notes": {"type": "string"},
                "force": {"type": "boolean"}
            },
            "required": ["booth_id", "date", "start_time", "end_time"]
        },
        "GenerateSessionsRequest": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "student_id": {"type": "string"},
                "booth_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "subject": {"type": "string"},
                "from_date": {"type": "string"}
            },
            "required": ["branch_id", "teacher_id", "student_id", "booth_id", "start_time", "end_time"]
        },
        "UpdateGlobalPolicyRequest": {
            "type": "object",
            "properties": {
                "mark_teacher_unavailable": {"type": "boolean"},
                "mark_student_unavailable": {"type": "boolean"},
                "mark_teacher_wrong_time": {"type": "boolean"},
                "mark_student_wrong_time": {"type": "boolean"},
                "mark_no_shared_availability": {"type": "boolean"},
                "allow_outside_availability_teacher": {"type": "boolean"},
                "allow_outside_availability_student": {"type": "boolean"},
                "generation_months": {"type": "integer"}
            },
            "required": ["mark_teacher_unavailable", "mark_student_unavailable", "mark_teacher_wrong_time", "mark_student_wrong_time", "mark_no_shared_availability", "allow_outside_availability_teacher", "allow_outside_availability_student", "generation_months"]
        },
        "UpdateBranchPolicyRequest": {
            "type": "object",
            "properties": {
                "mark_teacher_unavailable": {"type": "boolean"},
                "mark_student_unavailable": {"type": "boolean"},
                "mark_teacher_wrong_time": {"type": "boolean"},
                "mark_student_wrong_time": {"type": "boolean"},
                "mark_no_shared_availability": {"type": "boolean"},
                "allow_outside_availability_teacher": {"type": "boolean"},
                "allow_outside_availability_student": {"type": "boolean"},
                "generation_months": {"type": "integer"},
                "clear": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
