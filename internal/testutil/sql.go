package testutil

// BlogDDL creates tables matching BlogSchema.
const BlogDDL = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE posts (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    author_id INTEGER REFERENCES users(id)
);
CREATE TABLE comments (
    id INTEGER PRIMARY KEY,
    post_id INTEGER NOT NULL REFERENCES posts(id),
    author_id INTEGER REFERENCES users(id),
    body TEXT NOT NULL
);
CREATE TABLE post_tags (
    post_id INTEGER NOT NULL REFERENCES posts(id),
    tag TEXT NOT NULL,
    PRIMARY KEY (post_id, tag)
);
`

// BlogSeed inserts three posts: one with two comments (one anonymous), one
// without an author, and one without comments.
const BlogSeed = `
INSERT INTO users (id, name) VALUES (7, 'ann'), (8, 'bob');
INSERT INTO posts (id, title, author_id) VALUES
    (1, 'Hello', 7),
    (2, 'World', NULL),
    (3, 'Empty', 7);
INSERT INTO comments (id, post_id, author_id, body) VALUES
    (11, 1, NULL, 'second'),
    (10, 1, 7, 'first'),
    (20, 2, 8, 'third');
INSERT INTO post_tags (post_id, tag) VALUES
    (1, 'go'),
    (1, 'db'),
    (3, 'go');
`
