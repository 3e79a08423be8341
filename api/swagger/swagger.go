package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Papers Hub API",
        "description": "Question papers and study material portal for students and teachers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {
            "name": "Authentication",
            "description": "Student OTP and teacher login"
        },
        {
            "name": "Session",
            "description": "Session state and lookup tables"
        },
        {
            "name": "Students",
            "description": "College selection and subscriptions"
        },
        {
            "name": "Departments",
            "description": "Branch and semester navigation"
        },
        {
            "name": "Documents",
            "description": "Scope listings and student uploads"
        },
        {
            "name": "Teachers",
            "description": "Teacher uploads and management"
        }
    ],
    "paths": {
        "/catalog": {
            "get": {
                "tags": [
                    "Session"
                ],
                "summary": "Lookup tables",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/session": {
            "get": {
                "tags": [
                    "Session"
                ],
                "summary": "Current session; consumes flash messages",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/student/otp": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Request a student login code",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid email",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "OTP delivery failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RequestOTPRequest"
                        }
                    }
                ]
            }
        },
        "/auth/student/verify": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Verify a student login code",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid code",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "No code issued",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "410": {
                        "description": "Code expired",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/VerifyOTPRequest"
                        }
                    }
                ]
            }
        },
        "/auth/teacher/{institution}/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Teacher login",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Wrong institution",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "institution",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TeacherLoginRequest"
                        }
                    }
                ]
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Logout",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/student/institution/{institution}": {
            "post": {
                "tags": [
                    "Students"
                ],
                "summary": "Select college",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Login required",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "institution",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/student/subscriptions": {
            "get": {
                "tags": [
                    "Students"
                ],
                "summary": "Subscribed scopes",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/departments": {
            "get": {
                "tags": [
                    "Departments"
                ],
                "summary": "Department selection",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "College not selected",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/departments/{department}/terms": {
            "get": {
                "tags": [
                    "Departments"
                ],
                "summary": "Term selection",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown branch",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/departments/{department}/terms/{term}/documents": {
            "get": {
                "tags": [
                    "Documents"
                ],
                "summary": "Scope listing",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "term",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    }
                ]
            }
        },
        "/departments/{department}/internships": {
            "get": {
                "tags": [
                    "Departments"
                ],
                "summary": "Active internships",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/departments/{department}/terms/{term}/student-upload/verify": {
            "post": {
                "tags": [
                    "Documents"
                ],
                "summary": "Unlock one student upload",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Incorrect password",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "term",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UploadPasswordRequest"
                        }
                    }
                ]
            }
        },
        "/departments/{department}/terms/{term}/student-upload": {
            "post": {
                "tags": [
                    "Documents"
                ],
                "summary": "Student upload",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Not verified",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "term",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "category",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "title",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "subject",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "formData",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "file",
                        "in": "formData",
                        "type": "file",
                        "required": true
                    }
                ],
                "consumes": [
                    "multipart/form-data"
                ]
            }
        },
        "/teacher/{department}/dashboard": {
            "get": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Teacher dashboard",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/teacher/{department}/terms/{term}/documents/{category}": {
            "post": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Teacher upload",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid upload",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "term",
                        "in": "path",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "title",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "subject",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "year",
                        "in": "formData",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "file",
                        "in": "formData",
                        "type": "file",
                        "required": true
                    }
                ],
                "consumes": [
                    "multipart/form-data"
                ]
            }
        },
        "/teacher/{department}/documents": {
            "get": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Own uploads",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/teacher/{department}/documents/export": {
            "get": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Export own uploads",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "department",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        },
        "/documents/{id}": {
            "delete": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Delete own document",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        }
    },
    "definitions": {
        "RequestOTPRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                }
            }
        },
        "VerifyOTPRequest": {
            "type": "object",
            "properties": {
                "otp": {
                    "type": "string"
                }
            }
        },
        "TeacherLoginRequest": {
            "type": "object",
            "properties": {
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "UploadPasswordRequest": {
            "type": "object",
            "properties": {
                "password": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "redirect": {
                    "type": "string"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
